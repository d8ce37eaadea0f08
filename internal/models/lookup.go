package models

// LookupIndexVersion identifies the key layout "LAST,FIRST,D{n}".
const LookupIndexVersion = 2

// FilterDoc is the serialized form of one district's membership filter.
type FilterDoc struct {
	M    int    `json:"m"`
	K    int    `json:"k"`
	Bits string `json:"bits"` // base64 packed bit array, LSB-first within each byte
}

// LookupIndex is the published per-district membership index. It never
// contains names or reversible hashes.
type LookupIndex struct {
	Version   int                  `json:"version"`
	M         int                  `json:"m"`
	K         int                  `json:"k"`
	Count     int                  `json:"count"`
	Districts map[string]FilterDoc `json:"districts"`
}
