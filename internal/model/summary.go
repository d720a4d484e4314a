package model

// Summary holds per-bucket finding counts. Informational findings
// (severity id 1) fall in no bucket.
type Summary struct {
	Low      int `json:"low"`
	Medium   int `json:"medium"`
	High     int `json:"high"`
	Critical int `json:"critical"`
}

// Add moves delta findings into the bucket for severityID. Ids without a
// bucket are ignored.
func (s *Summary) Add(severityID, delta int) {
	switch severityID {
	case 2:
		s.Low += delta
	case 3:
		s.Medium += delta
	case 4:
		s.High += delta
	case 5:
		s.Critical += delta
	}
}

func (s Summary) Total() int {
	return s.Low + s.Medium + s.High + s.Critical
}

// Summarize buckets an in-hand slice of findings.
func Summarize(findings []SecurityFinding) Summary {
	var s Summary
	for _, f := range findings {
		s.Add(f.SeverityID, 1)
	}
	return s
}
