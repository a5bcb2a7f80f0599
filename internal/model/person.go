package model

type Identifier struct {
	Scheme     string `json:"scheme"`
	Identifier string `json:"identifier"`
}

type Person struct {
	ID          string       `json:"_id"`
	Name        string       `json:"name"`
	BirthDate   string       `json:"birth_date"`
	Image       string       `json:"image,omitempty"`
	Identifiers []Identifier `json:"identifiers"`
	Sources     []Link       `json:"sources"`
}

// NewPerson keys the id on (name, birth date), the person's identity.
func NewPerson(name, birthDate string) *Person {
	return &Person{ID: NewID("person", name, birthDate), Name: name, BirthDate: birthDate}
}

func (p *Person) Kind() string        { return "person" }
func (p *Person) RecordID() string    { return p.ID }
func (p *Person) DisplayName() string { return p.Name }
func (p *Person) Body() string        { return "" }

func (p *Person) AddSource(url, note string) {
	for _, s := range p.Sources {
		if s.URL == url {
			return
		}
	}
	p.Sources = append(p.Sources, Link{URL: url, Note: note})
}

// AddIdentifier ignores a (scheme, value) pair the person already has.
func (p *Person) AddIdentifier(value, scheme string) {
	for _, id := range p.Identifiers {
		if id.Scheme == scheme && id.Identifier == value {
			return
		}
	}
	p.Identifiers = append(p.Identifiers, Identifier{Scheme: scheme, Identifier: value})
}

type Organization struct {
	ID             string `json:"_id"`
	Name           string `json:"name"`
	Classification string `json:"classification"`
	Sources        []Link `json:"sources"`
}

func NewOrganization(name, classification string) *Organization {
	return &Organization{ID: NewID("organization", classification, name), Name: name, Classification: classification}
}

func (o *Organization) Kind() string        { return "organization" }
func (o *Organization) RecordID() string    { return o.ID }
func (o *Organization) DisplayName() string { return o.Name }
func (o *Organization) Body() string        { return "" }

func (o *Organization) AddSource(url, note string) {
	o.Sources = append(o.Sources, Link{URL: url, Note: note})
}

// Post is a seat: a chamber plus a district or a state at large.
type Post struct {
	ID             string `json:"_id"`
	OrganizationID string `json:"organization_id"`
	DivisionID     string `json:"division_id"`
	Label          string `json:"label"`
	Role           string `json:"role"`
}

func NewPost(organizationID, divisionID, label, role string) *Post {
	return &Post{
		ID:             NewID("post", organizationID, divisionID),
		OrganizationID: organizationID,
		DivisionID:     divisionID,
		Label:          label,
		Role:           role,
	}
}

func (p *Post) Kind() string        { return "post" }
func (p *Post) RecordID() string    { return p.ID }
func (p *Post) DisplayName() string { return p.Label }
func (p *Post) Body() string        { return "" }

type Membership struct {
	ID             string `json:"_id"`
	PersonID       string `json:"person_id"`
	OrganizationID string `json:"organization_id"`
	PostID         string `json:"post_id,omitempty"`
	Role           string `json:"role"`
	Label          string `json:"label,omitempty"`
	StartDate      string `json:"start_date"`
	EndDate        string `json:"end_date"`
}

func NewMembership(personID, organizationID, postID, role, label, start, end string) *Membership {
	return &Membership{
		ID:             NewID("membership", personID, organizationID, postID, role, start, end),
		PersonID:       personID,
		OrganizationID: organizationID,
		PostID:         postID,
		Role:           role,
		Label:          label,
		StartDate:      start,
		EndDate:        end,
	}
}

func (m *Membership) Kind() string        { return "membership" }
func (m *Membership) RecordID() string    { return m.ID }
func (m *Membership) DisplayName() string { return m.Label }
func (m *Membership) Body() string        { return "" }
