package source

import (
	"bytes"
	"context"
	"errors"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"civicdata/us-ingester/internal/config"
	"civicdata/us-ingester/internal/model"
)

const floorXML = `<?xml version="1.0" encoding="UTF-8"?>
<legislative_activity>
  <legislative_congress congress="113"/>
  <legislative_session session="2"/>
  <legislative_day date="20140110"/>
  <floor_actions>
    <floor_action act-id="H38310" unique-id="1">
      <action_time for-search="20140110T09:00:26">9:00:26 A.M.</action_time>
      <action_description>Mr. Sessions of TX moved to consider <a rel="bill" href="http://thomas/hr3362">H.R. 3362</a>. The Committee on Rules reported <a rel="report" href="http://clerk/report1">H. Rept. 113-1</a>.</action_description>
    </floor_action>
    <floor_action act-id="H30000" unique-id="2">
      <action_time for-search="not-a-time">?</action_time>
      <action_description>Unreadable.</action_description>
    </floor_action>
    <floor_action act-id="H8D000" unique-id="3">
      <action_time for-search="20140110T13:45:00">1:45:00 P.M.</action_time>
      <action_description>On agreeing to the resolution <a rel="vote" href="http://clerk/roll012">Roll no. 12</a>. Became <a rel="publaw" href="{{LAW}}/PLAW-113publ3/html/PLAW-113publ3.htm">Public Law 113-3</a>.</action_description>
    </floor_action>
  </floor_actions>
</legislative_activity>`

const committeesYAML = `
- type: house
  name: House Committee on Rules
  thomas_id: HSRU
- type: senate
  name: Senate Committee on Finance
- type: house
  name: House Committee on Ways and Means
`

const lawPage = `<html><body><h1>Public Law 113-3</h1><p>Enacted from H.R.&nbsp;325 of the 113th Congress.</p></body></html>`

const sessionsPage = `<html><body>
<div id="nav"><a href="HDoc-1-1-Other.xml">other</a></div>
<div id="intro_content"><ul>
  <li><a href="HDoc-113-2-FloorProceedings.xml">113th Congress, 2nd Session</a></li>
  <li><a href="HDoc-113-1-FloorProceedings.xml">113th Congress, 1st Session</a></li>
  <li><a href="readme.html">Read me</a></li>
</ul></div></body></html>`

type clerkStub struct {
	mu       sync.Mutex
	days     map[string]func(w http.ResponseWriter) // YYYYMMDD -> response
	requests []string
	docs     map[string]string
	lawBody  string
}

func (c *clerkStub) served() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.requests...)
}

func newClerk(t *testing.T) (*clerkStub, *httptest.Server) {
	t.Helper()
	c := &clerkStub{days: map[string]func(http.ResponseWriter){}, docs: map[string]string{}, lawBody: lawPage}
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/floorsummary/Download.aspx":
			day := strings.TrimSuffix(r.URL.Query().Get("file"), ".xml")
			c.mu.Lock()
			c.requests = append(c.requests, day)
			fn := c.days[day]
			c.mu.Unlock()
			if fn == nil {
				http.NotFound(w, r)
				return
			}
			fn(w)
		case r.URL.Path == "/floorsummary/floor-download.aspx":
			_, _ = w.Write([]byte(sessionsPage))
		case strings.HasPrefix(r.URL.Path, "/floorsummary/HDoc-"):
			body, ok := c.docs[strings.TrimPrefix(r.URL.Path, "/floorsummary/")]
			if !ok {
				http.NotFound(w, r)
				return
			}
			_, _ = w.Write([]byte(strings.ReplaceAll(body, "{{LAW}}", srv.URL+"/fdsys/pkg")))
		case r.URL.Path == "/committees.yaml":
			_, _ = w.Write([]byte(committeesYAML))
		case r.URL.Path == "/fdsys/pkg/PLAW-113publ3/content-detail.html":
			_, _ = w.Write([]byte(c.lawBody))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return c, srv
}

func (c *clerkStub) serveDoc(srv *httptest.Server, day, doc string) {
	c.days[day] = func(w http.ResponseWriter) {
		_, _ = w.Write([]byte(strings.ReplaceAll(doc, "{{LAW}}", srv.URL+"/fdsys/pkg")))
	}
}

// 2014-01-16 10:00 in Washington.
var floorNow = time.Date(2014, 1, 16, 15, 0, 0, 0, time.UTC)

func newTestFloorSource(t *testing.T, srv *httptest.Server, mutate func(*config.FloorConfig)) *FloorSource {
	t.Helper()
	cfg := config.FloorConfig{
		BaseURL:        srv.URL + "/floorsummary",
		CommitteesURL:  srv.URL + "/committees.yaml",
		BacksearchDays: 90,
		HTTP:           config.CommonHTTP{MaxRetries: 1},
	}
	if mutate != nil {
		mutate(&cfg)
	}
	s, err := NewFloorSource(cfg)
	require.NoError(t, err)
	s.now = func() time.Time { return floorNow }
	return s
}

func events(recs []model.Record) []*model.Event {
	var out []*model.Event
	for _, r := range recs {
		out = append(out, r.(*model.Event))
	}
	return out
}

func TestBacksearchOffsets(t *testing.T) {
	assert.Equal(t, []int{0, 1, 3, 6, 10, 15}, BacksearchOffsets(6))
	assert.Empty(t, BacksearchOffsets(0))
	offs := BacksearchOffsets(90)
	assert.Len(t, offs, 90)
	assert.Equal(t, 89*90/2, offs[89])
}

func TestFloorBacksearchStopsAtFirstDocument(t *testing.T) {
	clerk, srv := newClerk(t)
	clerk.days["20140115"] = func(w http.ResponseWriter) {
		_, _ = w.Write([]byte("<html>The requested file was not found.</html>"))
	}
	clerk.days["20140113"] = func(w http.ResponseWriter) { w.WriteHeader(http.StatusBadGateway) }
	clerk.serveDoc(srv, "20140110", floorXML)
	s := newTestFloorSource(t, srv, nil)

	recs, errs := collect(t, s)

	assert.Equal(t, []string{"20140116", "20140115", "20140113", "20140110"}, clerk.served())
	assert.Len(t, events(recs), 2)

	var kinds []ErrorKind
	for _, err := range errs {
		var ie *ItemError
		require.True(t, errors.As(err, &ie))
		assert.False(t, ie.Fatal)
		kinds = append(kinds, ie.Kind)
	}
	assert.Equal(t, []ErrorKind{ErrNetwork, ErrParse}, kinds)
}

func TestFloorBacksearchExhausted(t *testing.T) {
	clerk, srv := newClerk(t)
	s := newTestFloorSource(t, srv, func(c *config.FloorConfig) { c.BacksearchDays = 4 })

	recs, errs := collect(t, s)
	assert.Empty(t, recs)
	assert.Empty(t, errs)
	assert.Equal(t, []string{"20140116", "20140115", "20140113", "20140110"}, clerk.served())
}

func TestFloorCancelledBacksearchIsNotReportedAsExhausted(t *testing.T) {
	_, srv := newClerk(t)
	s := newTestFloorSource(t, srv, nil)
	var buf bytes.Buffer
	log.SetOutput(&buf)
	t.Cleanup(func() { log.SetOutput(os.Stderr) })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var errs []error
	for rec, err := range s.Scrape(ctx) {
		require.Nil(t, rec)
		errs = append(errs, err)
	}
	require.NotEmpty(t, errs)
	assert.True(t, IsFatal(errs[len(errs)-1]))
	assert.ErrorIs(t, errs[len(errs)-1], context.Canceled)
	assert.NotContains(t, buf.String(), "no floor updates found")
}

func TestFloorEventFields(t *testing.T) {
	clerk, srv := newClerk(t)
	clerk.serveDoc(srv, "20140116", floorXML)
	s := newTestFloorSource(t, srv, nil)

	recs, _ := collect(t, s)
	evs := events(recs)
	require.Len(t, evs, 2)
	ev := evs[0]

	assert.Equal(t, "House Floor Update on 2014-01-10 at 09:00:26.", ev.Name)
	assert.Equal(t, time.Date(2014, 1, 10, 14, 0, 26, 0, time.UTC), ev.StartDate)
	assert.Equal(t, "US/Eastern", ev.Timezone)
	assert.Equal(t, "floor_update", ev.Classification)
	assert.Equal(t, houseFloor, ev.Location)
	assert.True(t, strings.HasPrefix(ev.Description, "Mr. Sessions of TX moved to consider H.R. 3362."))
	assert.Equal(t, []model.Link{{
		URL:  srv.URL + "/floorsummary/Download.aspx?file=20140110.xml",
		Note: floorSrcNote,
	}}, ev.Sources)
	assert.Equal(t, map[string]string{"act-id": "H38310", "unique-id": "1"}, ev.Extras)

	require.Len(t, ev.Agenda, 3)
	assert.Equal(t, "Bills referenced by this update.", ev.Agenda[0].Description)
	assert.Equal(t, "Public laws referenced by this update.", ev.Agenda[1].Description)
	assert.Equal(t, "Votes referenced by this update.", ev.Agenda[2].Description)
	for i, item := range ev.Agenda {
		assert.Equal(t, i, item.Order)
	}
	assert.Equal(t, []model.RelatedEntity{{
		Name:       "H.R. 3362",
		EntityType: "bill",
		ID:         `~{"congress": "113", "identifier": "HR 3362"}`,
		Note:       "Bill was referenced on the House floor.",
	}}, ev.Agenda[0].RelatedEntities)
	assert.Empty(t, ev.Agenda[1].RelatedEntities)
	assert.Empty(t, ev.Agenda[2].RelatedEntities)

	assert.Equal(t, []model.Document{{
		Note:  "Document referenced by this update.",
		Links: []model.Link{{URL: "http://clerk/report1", MediaType: "text/html"}},
	}}, ev.Documents)

	assert.Equal(t, []model.RelatedEntity{
		{Name: "House Committee on Rules", EntityType: "organization", ID: `~{"name": "House Committee on Rules"}`, Note: "participant"},
		{Name: "Mr. Sessions of TX", EntityType: "person", Note: "Legislator was named on the House floor."},
	}, ev.Participants)
}

func TestFloorLawAndVoteReferences(t *testing.T) {
	clerk, srv := newClerk(t)
	clerk.serveDoc(srv, "20140116", floorXML)
	s := newTestFloorSource(t, srv, nil)

	recs, _ := collect(t, s)
	evs := events(recs)
	require.Len(t, evs, 2)
	ev := evs[1]

	assert.Equal(t, "3", ev.Extras["unique-id"])
	assert.Equal(t, []model.RelatedEntity{{
		Name:       "Public Law 113-3",
		EntityType: "bill",
		ID:         `~{"congress": "113", "identifier": "HR 325"}`,
		Note:       "Law was referenced on the House floor.",
	}}, ev.Agenda[1].RelatedEntities)
	assert.Equal(t, []model.RelatedEntity{{
		Name:       "Roll no. 12",
		EntityType: "vote",
		ID:         `~{"congress": "113", "identifier": "12"}`,
		Note:       "Vote was referenced on the House floor.",
	}}, ev.Agenda[2].RelatedEntities)
	assert.Empty(t, ev.Agenda[0].RelatedEntities)
	assert.Empty(t, ev.Participants)
}

func TestFloorRelativeLawHrefUsesLawBaseURL(t *testing.T) {
	clerk, srv := newClerk(t)
	clerk.serveDoc(srv, "20140116", strings.ReplaceAll(floorXML, "{{LAW}}/", ""))
	s := newTestFloorSource(t, srv, func(c *config.FloorConfig) { c.LawBaseURL = srv.URL + "/fdsys/pkg/" })

	recs, _ := collect(t, s)
	evs := events(recs)
	require.Len(t, evs, 2)
	require.Len(t, evs[1].Agenda[1].RelatedEntities, 1)
	assert.Equal(t, `~{"congress": "113", "identifier": "HR 325"}`, evs[1].Agenda[1].RelatedEntities[0].ID)
}

const titledFloorXML = `<?xml version="1.0" encoding="UTF-8"?>
<legislative_activity>
  <legislative_congress congress="113"/>
  <legislative_day date="20140116"/>
  <floor_actions>
    <floor_action act-id="H11000" unique-id="9">
      <action_time for-search="20140116T10:00:00">10:00:00 A.M.</action_time>
      <action_description>Rep. Smith of OH yielded to Mr. Sessions of TX.</action_description>
    </floor_action>
  </floor_actions>
</legislative_activity>`

func TestFloorPersonParticipantChamberFromTitle(t *testing.T) {
	clerk, srv := newClerk(t)
	clerk.serveDoc(srv, "20140116", titledFloorXML)
	s := newTestFloorSource(t, srv, nil)

	recs, errs := collect(t, s)
	require.Empty(t, errs)
	evs := events(recs)
	require.Len(t, evs, 1)
	assert.Equal(t, []model.RelatedEntity{
		{Name: "Rep. Smith of OH", EntityType: "person", Note: "Legislator was named on the House floor.", Chamber: "lower"},
		{Name: "Mr. Sessions of TX", EntityType: "person", Note: "Legislator was named on the House floor."},
	}, evs[0].Participants)
}

func TestFloorDocumentScopeSharesReferences(t *testing.T) {
	clerk, srv := newClerk(t)
	clerk.serveDoc(srv, "20140116", floorXML)
	s := newTestFloorSource(t, srv, func(c *config.FloorConfig) { c.ReferenceScope = "document" })

	recs, _ := collect(t, s)
	evs := events(recs)
	require.Len(t, evs, 2)
	for _, ev := range evs {
		assert.Len(t, ev.Agenda[0].RelatedEntities, 1)
		assert.Len(t, ev.Agenda[1].RelatedEntities, 1)
		assert.Len(t, ev.Agenda[2].RelatedEntities, 1)
		assert.Len(t, ev.Documents, 1)
	}
}

func TestFloorLawLookupFailureKeepsEvent(t *testing.T) {
	clerk, srv := newClerk(t)
	clerk.serveDoc(srv, "20140116", floorXML)
	clerk.lawBody = "<html><body>No citation here.</body></html>"
	s := newTestFloorSource(t, srv, nil)

	recs, errs := collect(t, s)
	evs := events(recs)
	require.Len(t, evs, 2)
	assert.Empty(t, evs[1].Agenda[1].RelatedEntities)
	assert.Len(t, evs[1].Agenda[2].RelatedEntities, 1)

	var lookup int
	for _, err := range errs {
		var ie *ItemError
		require.True(t, errors.As(err, &ie))
		if ie.Kind == ErrLookup {
			lookup++
			assert.ErrorIs(t, err, errNoBillCitation)
		}
	}
	assert.Equal(t, 1, lookup)
}

func TestFloorMalformedDocumentIsFatal(t *testing.T) {
	clerk, srv := newClerk(t)
	clerk.serveDoc(srv, "20140116", "<legislative_activity><floor_actions>")
	state := filepath.Join(t.TempDir(), "floor.json")
	s := newTestFloorSource(t, srv, func(c *config.FloorConfig) { c.StatePath = state })

	recs, errs := collect(t, s)
	assert.Empty(t, recs)
	require.Len(t, errs, 1)
	assert.True(t, IsFatal(errs[0]))
	assert.NoFileExists(t, state)
}

func TestFloorUnchangedDocumentIsSkipped(t *testing.T) {
	clerk, srv := newClerk(t)
	clerk.serveDoc(srv, "20140116", floorXML)
	state := filepath.Join(t.TempDir(), "floor.json")
	s := newTestFloorSource(t, srv, func(c *config.FloorConfig) { c.StatePath = state })

	first, _ := collect(t, s)
	assert.Len(t, events(first), 2)
	assert.FileExists(t, state)

	second, errs := collect(t, s)
	assert.Empty(t, second)
	assert.Empty(t, errs)

	clerk.serveDoc(srv, "20140116", strings.Replace(floorXML, "Unreadable.", "Changed.", 1))
	third, _ := collect(t, s)
	assert.Len(t, events(third), 2)
}

func TestFloorSessionDocument(t *testing.T) {
	clerk, srv := newClerk(t)
	clerk.docs["HDoc-113-2-FloorProceedings.xml"] = floorXML
	s := newTestFloorSource(t, srv, func(c *config.FloorConfig) { c.Congress, c.Session = 113, 2 })

	recs, _ := collect(t, s)
	assert.Len(t, events(recs), 2)
	assert.Empty(t, clerk.served())
}

func TestFloorMissingSessionDocument(t *testing.T) {
	_, srv := newClerk(t)
	s := newTestFloorSource(t, srv, func(c *config.FloorConfig) { c.Congress, c.Session = 112, 1 })

	recs, errs := collect(t, s)
	assert.Empty(t, recs)
	require.Len(t, errs, 1)
	var ie *ItemError
	require.True(t, errors.As(errs[0], &ie))
	assert.Equal(t, ErrLookup, ie.Kind)
}

func TestFloorAvailableSessions(t *testing.T) {
	_, srv := newClerk(t)
	s := newTestFloorSource(t, srv, nil)

	got, err := s.AvailableSessions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []SessionRef{{Congress: 113, Session: 2}, {Congress: 113, Session: 1}}, got)
}

func TestFloorURL(t *testing.T) {
	s, err := NewFloorSource(config.FloorConfig{BaseURL: "http://clerk.house.gov/floorsummary/"})
	require.NoError(t, err)
	assert.Equal(t, "http://clerk.house.gov/floorsummary/Download.aspx?file=20140110.xml",
		s.URL(DayRef{Date: time.Date(2014, 1, 10, 0, 0, 0, 0, time.UTC)}))
	assert.Equal(t, "http://clerk.house.gov/floorsummary/HDoc-113-2-FloorProceedings.xml",
		s.URL(SessionRef{Congress: 113, Session: 2}))
}

func TestNewFloorSourceValidation(t *testing.T) {
	_, err := NewFloorSource(config.FloorConfig{ReferenceScope: "page"})
	assert.ErrorContains(t, err, "reference_scope")

	_, err = NewFloorSource(config.FloorConfig{Congress: 113})
	assert.Error(t, err)

	s, err := NewFloorSource(config.FloorConfig{})
	require.NoError(t, err)
	assert.Equal(t, ScopeAction, s.scope)
	assert.Equal(t, 90, s.cfg.BacksearchDays)
}

func TestLawDetailURL(t *testing.T) {
	assert.Equal(t,
		"http://www.gpo.gov/fdsys/pkg/PLAW-113publ3/content-detail.html",
		lawDetailURL("http://www.gpo.gov/fdsys/pkg/PLAW-113publ3/html/PLAW-113publ3.htm"))
}

func TestLawHref(t *testing.T) {
	s := &FloorSource{cfg: config.FloorConfig{LawBaseURL: "http://www.gpo.gov/fdsys/pkg/"}}
	assert.Equal(t, "http://www.gpo.gov/fdsys/pkg/PLAW-113publ3/html/PLAW-113publ3.htm", s.lawHref("PLAW-113publ3/html/PLAW-113publ3.htm"))
	assert.Equal(t, "https://govinfo.example/PLAW-113publ3/html/x.htm", s.lawHref("https://govinfo.example/PLAW-113publ3/html/x.htm"))
}

func TestAsciiFold(t *testing.T) {
	assert.Equal(t, "H.R. 325", asciiFold("H.R. 325"))
	assert.Equal(t, "Pena", asciiFold("Peña"))
}

func TestXMLTreeQueries(t *testing.T) {
	root, err := parseXMLTree([]byte(`<r><a rel="bill">H.R. <b>1</b></a><x><a rel="vote">Roll 2</a></x></r>`))
	require.NoError(t, err)
	assert.Equal(t, "H.R. 1Roll 2", root.Text())
	assert.Len(t, root.Find("a"), 2)
	require.Len(t, root.Links("vote"), 1)
	assert.Equal(t, "Roll 2", root.Links("vote")[0].Text())
	assert.Nil(t, root.Child("b"))
	assert.NotNil(t, root.First("b"))

	_, err = parseXMLTree([]byte(""))
	assert.Error(t, err)
}
