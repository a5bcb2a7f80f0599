package model

import "time"

type Coordinates struct {
	Latitude  string `json:"latitude"`
	Longitude string `json:"longitude"`
}

type Location struct {
	Name        string      `json:"name"`
	Note        string      `json:"note,omitempty"`
	URL         string      `json:"url,omitempty"`
	Coordinates Coordinates `json:"coordinates"`
}

// RelatedEntity is a reference found in source text. Note records how it was detected.
type RelatedEntity struct {
	Name       string `json:"name"`
	EntityType string `json:"entity_type"` // bill, vote, organization, person
	ID         string `json:"id"`
	Note       string `json:"note"`
	Chamber    string `json:"chamber,omitempty"` // person participants with a Rep/Sen title
}

type AgendaItem struct {
	Description     string          `json:"description"`
	Order           int             `json:"order"`
	RelatedEntities []RelatedEntity `json:"related_entities"`
}

func (a *AgendaItem) AddBill(name, id, note string) {
	a.RelatedEntities = append(a.RelatedEntities, RelatedEntity{Name: name, EntityType: "bill", ID: id, Note: note})
}

func (a *AgendaItem) AddVote(name, id, note string) {
	a.RelatedEntities = append(a.RelatedEntities, RelatedEntity{Name: name, EntityType: "vote", ID: id, Note: note})
}

type Document struct {
	Note  string `json:"note"`
	Links []Link `json:"links"`
}

type Event struct {
	ID             string            `json:"_id"`
	Name           string            `json:"name"`
	StartDate      time.Time         `json:"start_date"`
	Timezone       string            `json:"timezone"`
	Location       Location          `json:"location"`
	Description    string            `json:"description"`
	Classification string            `json:"classification"`
	Sources        []Link            `json:"sources"`
	Extras         map[string]string `json:"extras"`
	Agenda         []*AgendaItem     `json:"agenda"`
	Documents      []Document        `json:"documents"`
	Participants   []RelatedEntity   `json:"participants"`
}

// NewEvent keys the event id on key, e.g. the source's unique-id.
func NewEvent(key, name string, start time.Time, timezone string, loc Location, description, classification string) *Event {
	return &Event{
		ID:             NewID("event", key),
		Name:           name,
		StartDate:      start,
		Timezone:       timezone,
		Location:       loc,
		Description:    description,
		Classification: classification,
		Extras:         map[string]string{},
	}
}

func (e *Event) Kind() string        { return "event" }
func (e *Event) RecordID() string    { return e.ID }
func (e *Event) DisplayName() string { return e.Name }
func (e *Event) Body() string        { return e.Description }

func (e *Event) AddSource(url, note string) {
	e.Sources = append(e.Sources, Link{URL: url, Note: note})
}

func (e *Event) AddAgendaItem(description string) *AgendaItem {
	item := &AgendaItem{Description: description, Order: len(e.Agenda), RelatedEntities: []RelatedEntity{}}
	e.Agenda = append(e.Agenda, item)
	return item
}

func (e *Event) AddDocument(note, url, mediaType string) {
	e.Documents = append(e.Documents, Document{Note: note, Links: []Link{{URL: url, MediaType: mediaType}}})
}

func (e *Event) AddCommittee(name, id string) {
	e.Participants = append(e.Participants, RelatedEntity{Name: name, EntityType: "organization", ID: id, Note: "participant"})
}

func (e *Event) AddPerson(name, chamber, note string) {
	e.Participants = append(e.Participants, RelatedEntity{Name: name, EntityType: "person", Note: note, Chamber: chamber})
}
