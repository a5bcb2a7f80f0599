package model

import "strings"

type Abstract struct {
	Abstract string `json:"abstract"`
	Note     string `json:"note,omitempty"`
	Date     string `json:"date,omitempty"`
}

type Title struct {
	Title string `json:"title"`
	Note  string `json:"note,omitempty"`
}

type RelatedBill struct {
	Identifier         string `json:"identifier"`
	LegislativeSession string `json:"legislative_session"`
	RelationType       string `json:"relation_type"`
}

// Sponsorship identifies a sponsor or cosponsor by an external id scheme.
type Sponsorship struct {
	Name           string `json:"name"`
	EntityType     string `json:"entity_type"`
	Classification string `json:"classification"`
	Primary        bool   `json:"primary"`
	Scheme         string `json:"scheme,omitempty"`
	ExternalID     string `json:"external_id,omitempty"`
	Chamber        string `json:"chamber,omitempty"`
}

type Action struct {
	Description     string   `json:"description"`
	Date            string   `json:"date"`
	Organization    string   `json:"organization,omitempty"`
	Chamber         string   `json:"chamber,omitempty"`
	Classification  []string `json:"classification"`
	RelatedEntities []string `json:"related_entities"`
}

type Version struct {
	Date  string `json:"date"`
	Type  string `json:"type"`
	Name  string `json:"name"`
	Links []Link `json:"links"`
}

type Bill struct {
	ID                 string        `json:"_id"`
	Identifier         string        `json:"identifier"`
	LegislativeSession string        `json:"legislative_session"`
	Title              string        `json:"title"`
	Chamber            string        `json:"chamber"`
	Sources            []Link        `json:"sources"`
	Subjects           []string      `json:"subject"`
	Abstracts          []Abstract    `json:"abstracts"`
	OtherTitles        []Title       `json:"other_titles"`
	RelatedBills       []RelatedBill `json:"related_bills"`
	Sponsorships       []Sponsorship `json:"sponsorships"`
	Actions            []Action      `json:"actions"`
	Versions           []Version     `json:"versions"`
}

func NewBill(identifier, session, title, chamber string) *Bill {
	return &Bill{
		ID:                 NewID("bill", session, identifier),
		Identifier:         identifier,
		LegislativeSession: session,
		Title:              title,
		Chamber:            chamber,
	}
}

func (b *Bill) Kind() string        { return "bill" }
func (b *Bill) RecordID() string    { return b.ID }
func (b *Bill) DisplayName() string { return b.Identifier + " " + b.Title }

func (b *Bill) Body() string {
	parts := make([]string, 0, len(b.Abstracts)+len(b.Subjects))
	for _, a := range b.Abstracts {
		parts = append(parts, a.Abstract)
	}
	parts = append(parts, b.Subjects...)
	return strings.Join(parts, "\n")
}

func (b *Bill) AddSource(url, note string) {
	b.Sources = append(b.Sources, Link{URL: url, Note: note})
}

func (b *Bill) AddSubject(s string) { b.Subjects = append(b.Subjects, s) }

func (b *Bill) AddAbstract(text, note, date string) {
	b.Abstracts = append(b.Abstracts, Abstract{Abstract: text, Note: note, Date: date})
}

func (b *Bill) AddTitle(title, note string) {
	b.OtherTitles = append(b.OtherTitles, Title{Title: title, Note: note})
}

func (b *Bill) AddRelatedBill(identifier, session, relation string) {
	b.RelatedBills = append(b.RelatedBills, RelatedBill{Identifier: identifier, LegislativeSession: session, RelationType: relation})
}

func (b *Bill) AddSponsorship(name string, primary bool, scheme, id, chamber string) {
	class := "cosponsor"
	if primary {
		class = "primary"
	}
	b.Sponsorships = append(b.Sponsorships, Sponsorship{
		Name:           name,
		EntityType:     "person",
		Classification: class,
		Primary:        primary,
		Scheme:         scheme,
		ExternalID:     id,
		Chamber:        chamber,
	})
}

func (b *Bill) AddAction(a Action) {
	if a.RelatedEntities == nil {
		a.RelatedEntities = []string{}
	}
	b.Actions = append(b.Actions, a)
}

func (b *Bill) AddVersion(v Version) { b.Versions = append(b.Versions, v) }
