// Package segmentation buckets customers into campaign segments from their
// order history. Every evaluation scans the full order set; nothing is
// maintained incrementally.
package segmentation

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"pharmacrm/internal/models"
)

const (
	// HighValueThreshold is inclusive: spending exactly this much qualifies.
	HighValueThreshold = 1000
	// ChurnWindow is exclusive: a last order exactly this old is not churn-risk.
	ChurnWindow = 90 * 24 * time.Hour
)

type Profile struct {
	UserID        string           `json:"userId"`
	Name          string           `json:"name,omitempty"`
	Email         string           `json:"email,omitempty"`
	Segments      []models.Segment `json:"segments"`
	LifetimeSpend float64          `json:"lifetimeSpend"`
	OrderCount    int              `json:"orderCount"`
	LastOrderAt   time.Time        `json:"lastOrderAt"`
}

func (p Profile) In(segment models.Segment) bool {
	for _, s := range p.Segments {
		if s == segment {
			return true
		}
	}
	return false
}

type accumulator struct {
	spend        decimal.Decimal
	orders       int
	last         time.Time
	prescription bool
	completed    bool
}

// Classify builds one profile per customer that appears in orders.
//
// The prescription/regular split is first-match: a customer with any
// prescription order lands in prescription only. High-value and churn-risk are
// evaluated independently of that split and of each other.
func Classify(orders []models.Order, now time.Time) []Profile {
	acc := make(map[string]*accumulator)
	for _, o := range orders {
		if o.UserID == "" {
			continue
		}
		a, ok := acc[o.UserID]
		if !ok {
			a = &accumulator{}
			acc[o.UserID] = a
		}
		if o.CreatedAt.After(a.last) {
			a.last = o.CreatedAt
		}
		if o.Status == models.OrderCancelled {
			continue
		}
		a.orders++
		a.spend = a.spend.Add(decimal.NewFromFloat(o.TotalAmount))
		if o.Status == models.OrderDelivered {
			a.completed = true
		}
		if o.HasPrescriptionItems() {
			a.prescription = true
		}
	}

	threshold := decimal.NewFromInt(HighValueThreshold)
	profiles := make([]Profile, 0, len(acc))
	for userID, a := range acc {
		p := Profile{
			UserID:        userID,
			Segments:      make([]models.Segment, 0, 2),
			LifetimeSpend: a.spend.Round(2).InexactFloat64(),
			OrderCount:    a.orders,
			LastOrderAt:   a.last,
		}
		switch {
		case a.prescription:
			p.Segments = append(p.Segments, models.SegmentPrescription)
		case a.completed:
			p.Segments = append(p.Segments, models.SegmentRegular)
		}
		if a.spend.GreaterThanOrEqual(threshold) {
			p.Segments = append(p.Segments, models.SegmentHighValue)
		}
		if !a.last.IsZero() && now.Sub(a.last) > ChurnWindow {
			p.Segments = append(p.Segments, models.SegmentChurnRisk)
		}
		profiles = append(profiles, p)
	}

	sort.Slice(profiles, func(i, j int) bool { return profiles[i].UserID < profiles[j].UserID })
	return profiles
}

// Enrich copies names and emails from known customers onto the profiles.
func Enrich(profiles []Profile, customers []models.Customer) {
	byUser := make(map[string]models.Customer, len(customers))
	for _, c := range customers {
		byUser[c.UserID] = c
	}
	for i := range profiles {
		if c, ok := byUser[profiles[i].UserID]; ok {
			profiles[i].Name = c.FullName()
			profiles[i].Email = c.Email
		}
	}
}

type Report struct {
	GeneratedAt time.Time                   `json:"generatedAt"`
	Counts      map[models.Segment]int      `json:"counts"`
	Segments    map[models.Segment][]string `json:"segments"`
	Profiles    []Profile                   `json:"profiles"`
}

func NewReport(profiles []Profile, now time.Time) Report {
	r := Report{
		GeneratedAt: now,
		Counts:      make(map[models.Segment]int, len(models.Segments)),
		Segments:    make(map[models.Segment][]string, len(models.Segments)),
		Profiles:    profiles,
	}
	for _, s := range models.Segments {
		r.Segments[s] = []string{}
		r.Counts[s] = 0
	}
	for _, p := range profiles {
		for _, s := range p.Segments {
			r.Segments[s] = append(r.Segments[s], p.UserID)
			r.Counts[s]++
		}
	}
	return r
}

// Members returns the profiles in the given segment.
func (r Report) Members(segment models.Segment) []Profile {
	out := make([]Profile, 0, r.Counts[segment])
	for _, p := range r.Profiles {
		if p.In(segment) {
			out = append(out, p)
		}
	}
	return out
}
