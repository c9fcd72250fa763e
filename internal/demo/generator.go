// Package demo generates a synthetic enrollment dataset so the warehouse
// has data to answer questions about without access to production feeds.
package demo

import (
	"bytes"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/parquet-go/parquet-go"
)

// Enrollment mirrors the mrt_events schema, one row per enrollment.
type Enrollment struct {
	OrganizationName     string `parquet:"organization_name"`
	OrganizationID       string `parquet:"organization_id"`
	OrganizationCategory string `parquet:"organization_category"`
	EventTitle           string `parquet:"event_title"`
	EventID              string `parquet:"event_id"`
	EventStatus          string `parquet:"event_status"`
	EventDuration        int64  `parquet:"event_duration"`
	AttendanceMode       string `parquet:"attendance_mode"`
	EventCreatedAt       int64  `parquet:"event_created_at,timestamp(millisecond)"`
	AttendeeID           string `parquet:"attendee_id"`
	FirstName            string `parquet:"first_name"`
	LastName             string `parquet:"last_name"`
	Email                string `parquet:"email"`
	PhoneNumber          string `parquet:"phone_number"`
	Gender               string `parquet:"gender"`
	County               string `parquet:"county"`
	Country              string `parquet:"country"`
	RegistrationNumber   string `parquet:"registration_number"`
	Profession           string `parquet:"profession"`
	JobTitle             string `parquet:"job_title"`
	Workplace            string `parquet:"workplace"`
	Location             string `parquet:"location"`
	Ward                 string `parquet:"ward"`
	Department           string `parquet:"department"`
	Branch               string `parquet:"branch"`
	EnrollmentID         string `parquet:"enrollment_id"`
	AttendeeDuration     int64  `parquet:"Attendee_Duration"`
	Attended             bool   `parquet:"attended"`
	RegistrationTime     int64  `parquet:"registration_time,timestamp(millisecond)"`
}

var (
	organizations = []struct {
		id       string
		name     string
		category string
	}{
		{"test_org_123", "Metro Health Alliance", "hospital"},
		{"org_nairobi_ngo", "Community Care Initiative", "NGO"},
		{"org_pharma_01", "Axon Pharmaceuticals", "pharma"},
		{"org_assoc_07", "National Nursing Association", "association"},
	}

	eventTitles = []string{
		"Antimicrobial Stewardship Workshop",
		"Maternal Health Summit",
		"Digital Records Training",
		"Emergency Response Refresher",
		"Community Outreach Briefing",
		"Clinical Research Seminar",
	}

	professions     = []string{"Doctor", "Nurse", "Pharmacist", "Clinical Officer", "Lab Technician"}
	attendanceModes = []string{"webinar", "hybrid", "self-paced", "in-person"}
	eventStatuses   = []string{"published", "published", "published", "draft"}
	genders         = []string{"female", "male"}
	counties        = []string{"Nairobi", "Mombasa", "Kisumu", "Nakuru", "Eldoret"}
	firstNames      = []string{"Amina", "Brian", "Carol", "David", "Esther", "Felix", "Grace", "Hassan"}
	lastNames       = []string{"Mwangi", "Otieno", "Kamau", "Achieng", "Njoroge", "Wanjiru"}
)

// Generate produces count enrollment rows. The generator is seeded so the
// same seed reproduces the same dataset.
func Generate(count int, seed int64) []Enrollment {
	rng := rand.New(rand.NewSource(seed))
	now := time.Now().UTC()

	// A pool of events shared across enrollments, so grouping queries
	// have repeats to aggregate.
	type event struct {
		id       string
		title    string
		status   string
		duration int64
		mode     string
		created  time.Time
		org      int
	}
	events := make([]event, 0, len(eventTitles)*2)
	for i := 0; i < cap(events); i++ {
		events = append(events, event{
			id:       uuid.NewString(),
			title:    eventTitles[rng.Intn(len(eventTitles))],
			status:   eventStatuses[rng.Intn(len(eventStatuses))],
			duration: int64(30 + rng.Intn(150)),
			mode:     attendanceModes[rng.Intn(len(attendanceModes))],
			created:  now.AddDate(0, 0, -rng.Intn(180)),
			org:      rng.Intn(len(organizations)),
		})
	}

	rows := make([]Enrollment, count)
	for i := range rows {
		ev := events[rng.Intn(len(events))]
		org := organizations[ev.org]
		first := firstNames[rng.Intn(len(firstNames))]
		last := lastNames[rng.Intn(len(lastNames))]
		county := counties[rng.Intn(len(counties))]
		attended := rng.Float64() < 0.7
		var attendeeDuration int64
		if attended {
			attendeeDuration = int64(float64(ev.duration) * (0.3 + 0.7*rng.Float64()))
		}
		registration := ev.created.AddDate(0, 0, rng.Intn(30))

		rows[i] = Enrollment{
			OrganizationName:     org.name,
			OrganizationID:       org.id,
			OrganizationCategory: org.category,
			EventTitle:           ev.title,
			EventID:              ev.id,
			EventStatus:          ev.status,
			EventDuration:        ev.duration,
			AttendanceMode:       ev.mode,
			EventCreatedAt:       ev.created.UnixMilli(),
			AttendeeID:           uuid.NewString(),
			FirstName:            first,
			LastName:             last,
			Email:                fmt.Sprintf("%s.%s%d@example.org", first, last, rng.Intn(1000)),
			PhoneNumber:          fmt.Sprintf("+2547%08d", rng.Intn(100000000)),
			Gender:               genders[rng.Intn(len(genders))],
			County:               county,
			Country:              "Kenya",
			RegistrationNumber:   fmt.Sprintf("REG-%06d", rng.Intn(1000000)),
			Profession:           professions[rng.Intn(len(professions))],
			JobTitle:             professions[rng.Intn(len(professions))],
			Workplace:            fmt.Sprintf("%s General Hospital", county),
			Location:             county,
			Ward:                 fmt.Sprintf("Ward %d", 1+rng.Intn(20)),
			Department:           "Clinical Services",
			Branch:               "Main",
			EnrollmentID:         uuid.NewString(),
			AttendeeDuration:     attendeeDuration,
			Attended:             attended,
			RegistrationTime:     registration.UnixMilli(),
		}
	}
	return rows
}

// EncodeParquet serializes enrollment rows into a parquet file body.
func EncodeParquet(rows []Enrollment) ([]byte, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("rows are required")
	}
	buf := bytes.NewBuffer(nil)
	writer := parquet.NewGenericWriter[Enrollment](buf)
	if _, err := writer.Write(rows); err != nil {
		return nil, fmt.Errorf("write parquet rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close parquet writer: %w", err)
	}
	return buf.Bytes(), nil
}
