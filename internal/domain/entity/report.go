package entity

import "time"

// SlotReport состояние слота в отчёте.
type SlotReport struct {
	Number int    `json:"number"`
	State  string `json:"state"`
	Data   string `json:"data,omitempty"`
}

// PlateReport отчёт по держателю для внешних получателей.
type PlateReport struct {
	PlateID    string         `json:"plate_id"`
	Camera     CameraPosition `json:"camera"`
	Kind       string         `json:"kind"`
	Complete   bool           `json:"complete"`
	ValidCount int            `json:"valid_count"`
	Slots      []SlotReport   `json:"slots"`
	ScannedAt  time.Time      `json:"scanned_at"`
}

// Codes прочитанные данные по номерам слотов.
func (r PlateReport) Codes() map[int]string {
	out := make(map[int]string)
	for _, s := range r.Slots {
		if s.Data != "" {
			out[s.Number] = s.Data
		}
	}
	return out
}
