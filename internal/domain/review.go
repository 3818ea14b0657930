package domain

import "time"

type Review struct {
	ID           int64      `json:"id"`
	ArtisanID    int64      `json:"artisanId"`
	Name         string     `json:"name"`
	Avatar       string     `json:"avatar"`
	Rating       int        `json:"rating"`
	Date         time.Time  `json:"date"`
	Text         string     `json:"text"`
	Response     string     `json:"response,omitempty"`
	ResponseDate *time.Time `json:"responseDate,omitempty"`
}

func (r Review) Clone() Review {
	out := r
	if r.ResponseDate != nil {
		d := *r.ResponseDate
		out.ResponseDate = &d
	}
	return out
}

// RatingBucket is one bar of the rating histogram.
type RatingBucket struct {
	Rating     int `json:"rating"`
	Count      int `json:"count"`
	Percentage int `json:"percentage"`
}
