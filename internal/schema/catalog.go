// Package schema describes the warehouse tables the assistant can query
// and turns them into retrievable documents for the vector store.
package schema

import (
	"fmt"

	"github.com/querychat/querychat/internal/vectorstore"
)

type Column struct {
	Name        string
	Type        string
	Description string
}

type Table struct {
	Name        string
	Description string
	Columns     []Column
}

// Documents flattens a table into one document per table description and
// one per column. Document IDs are stable so repopulating the store is an
// upsert, not a duplicate.
func (t Table) Documents() []vectorstore.Document {
	docs := make([]vectorstore.Document, 0, len(t.Columns)+1)
	if t.Description != "" {
		docs = append(docs, vectorstore.Document{
			ID:   fmt.Sprintf("table_%s", t.Name),
			Text: fmt.Sprintf("Table: %s. Description: %s", t.Name, t.Description),
			Metadata: map[string]string{
				"table": t.Name,
				"type":  "table_description",
			},
		})
	}
	for _, col := range t.Columns {
		if col.Name == "" || col.Type == "" {
			continue
		}
		text := fmt.Sprintf("Table: %s. Column: %s (Type: %s).", t.Name, col.Name, col.Type)
		if col.Description != "" {
			text += fmt.Sprintf(" Description: %s", col.Description)
		}
		docs = append(docs, vectorstore.Document{
			ID:   fmt.Sprintf("table_%s_col_%s", t.Name, col.Name),
			Text: text,
			Metadata: map[string]string{
				"table":  t.Name,
				"column": col.Name,
				"type":   "column_info",
			},
		})
	}
	return docs
}

// EventsTable is the enrollment fact table the assistant answers
// questions about. One row per enrollment of an attendee into an event,
// so the same attendee or event can appear in many rows.
func EventsTable() Table {
	return Table{
		Name:        "mrt_events",
		Description: "Captures data related to event enrollments and registrations. Each record represents a unique enrollment of a user into an event organized by a specific organization. so there can be multiple enrollments to the same event or event the same user with multiple enrollments to different events",
		Columns: []Column{
			{Name: "organization_name", Type: "STRING", Description: "The name of the organization hosting the event."},
			{Name: "organization_id", Type: "STRING", Description: "A unique identifier for the organization hosting the event. Used for filtering data by organization."},
			{Name: "organization_category", Type: "STRING", Description: "The category of the organization. Possible values: 'hospital', 'NGO', 'pharma', 'association'."},
			{Name: "event_title", Type: "STRING", Description: "The title or name of the event."},
			{Name: "event_id", Type: "STRING", Description: "A unique identifier for the event."},
			{Name: "event_status", Type: "STRING", Description: "The current status of the event. Possible values: 'published', 'draft'."},
			{Name: "event_duration", Type: "INTEGER", Description: "The total duration of the event in minutes."},
			{Name: "attendance_mode", Type: "STRING", Description: "The mode in which the event is attended. Possible values: 'webinar', 'hybrid', 'self-paced', 'in-person'."},
			{Name: "event_created_at", Type: "TIMESTAMP", Description: "The timestamp when the event was created."},
			{Name: "attendee_id", Type: "STRING", Description: "A unique identifier for the attendee."},
			{Name: "first_name", Type: "STRING", Description: "The first name of the attendee."},
			{Name: "last_name", Type: "STRING", Description: "The last name of the attendee."},
			{Name: "email", Type: "STRING", Description: "The email address of the attendee."},
			{Name: "phone_number", Type: "STRING", Description: "The phone number of the attendee."},
			{Name: "gender", Type: "STRING", Description: "The gender of the attendee."},
			{Name: "county", Type: "STRING", Description: "The county or regional area where the attendee is located."},
			{Name: "country", Type: "STRING", Description: "The country where the attendee is located."},
			{Name: "registration_number", Type: "STRING", Description: "A unique registration number assigned to the attendee."},
			{Name: "profession", Type: "STRING", Description: "The profession or cadre of the attendee (e.g., healthcare professionals like Doctor, Nurse)."},
			{Name: "job_title", Type: "STRING", Description: "The specific job title of the attendee."},
			{Name: "workplace", Type: "STRING", Description: "The name of the organization or institution where the attendee works."},
			{Name: "location", Type: "STRING", Description: "The specific location or address of the attendee's workplace or residence."},
			{Name: "ward", Type: "STRING", Description: "The ward or sub-region within the county where the attendee is located."},
			{Name: "department", Type: "STRING", Description: "The department or unit within the attendee's workplace."},
			{Name: "branch", Type: "STRING", Description: "The branch or division of the attendee's workplace."},
			{Name: "enrollment_id", Type: "STRING", Description: "A unique identifier for each enrollment into an event."},
			{Name: "Attendee_Duration", Type: "INTEGER", Description: "The duration in minutes that the attendee spent attending the event."},
			{Name: "attended", Type: "BOOLEAN", Description: "Whether the attendee attended the event. True means attended, False means did not attend."},
			{Name: "registration_time", Type: "TIMESTAMP", Description: "The timestamp when the attendee registered for the event."},
		},
	}
}
