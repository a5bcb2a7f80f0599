package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"iter"
	"log"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"golang.org/x/net/html"
	"gopkg.in/yaml.v3"

	"civicdata/us-ingester/internal/config"
	"civicdata/us-ingester/internal/model"
	"civicdata/us-ingester/internal/refdata"
	"civicdata/us-ingester/internal/store"
	"civicdata/us-ingester/internal/util"
)

const (
	notFoundMarker = "The requested file was not found"
	floorTimeForm  = "20060102T15:04:05"
	floorSrcNote   = "Scraped from the Office of the Clerk, U.S. House of Representatives website."
	floorTimezone  = "US/Eastern"
)

var houseFloor = model.Location{
	Name: "East Capitol Street Northeast & First St SE, Washington, DC 20004",
	Note: "House Floor",
	URL:  "http://www.house.gov/",
	Coordinates: model.Coordinates{
		Latitude:  "38.889931",
		Longitude: "-77.009003",
	},
}

// ReferenceScope selects which part of the document an action's links are
// read from.
type ReferenceScope string

const (
	ScopeAction   ReferenceScope = "action"   // the floor_action subtree
	ScopeDocument ReferenceScope = "document" // every link in the document
)

// DocRef names one floor document: a single day or a whole session.
type DocRef interface{ docRef() }

type DayRef struct{ Date time.Time }

type SessionRef struct{ Congress, Session int }

func (DayRef) docRef()     {}
func (SessionRef) docRef() {}

func (r DayRef) String() string     { return r.Date.Format("20060102") }
func (r SessionRef) String() string { return fmt.Sprintf("%d-%d", r.Congress, r.Session) }

// FloorSource reads House Clerk floor summaries.
type FloorSource struct {
	cfg     config.FloorConfig
	scope   ReferenceScope
	eastern *time.Location
	now     func() time.Time

	get    *util.Getter // clerk documents
	comGet *util.Getter // committee roster
	lawGet *util.Getter // GPO law detail pages
}

func NewFloorSource(cfg config.FloorConfig) (*FloorSource, error) {
	scope := ReferenceScope(cfg.ReferenceScope)
	switch scope {
	case "":
		scope = ScopeAction
	case ScopeAction, ScopeDocument:
	default:
		return nil, fmt.Errorf("floor: reference_scope must be action or document, got %q", cfg.ReferenceScope)
	}
	if (cfg.Congress > 0) != (cfg.Session > 0) {
		return nil, errors.New("floor: congress and session must be set together")
	}
	eastern, err := time.LoadLocation("America/New_York")
	if err != nil {
		return nil, fmt.Errorf("floor: load timezone: %w", err)
	}
	if cfg.BacksearchDays <= 0 {
		cfg.BacksearchDays = 90
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &FloorSource{
		cfg:     cfg,
		scope:   scope,
		eastern: eastern,
		now:     time.Now,
		get:     newGetter("clerk", cfg.HTTP),
		comGet:  newGetter("committees", cfg.HTTP),
		lawGet:  newGetter("publaw", cfg.HTTP),
	}, nil
}

func (s *FloorSource) Name() string { return "floor" }

// URL is the Clerk download location of ref.
func (s *FloorSource) URL(ref DocRef) string {
	switch r := ref.(type) {
	case DayRef:
		return s.cfg.BaseURL + "/Download.aspx?file=" + r.String() + ".xml"
	case SessionRef:
		return fmt.Sprintf("%s/HDoc-%d-%d-FloorProceedings.xml", s.cfg.BaseURL, r.Congress, r.Session)
	default:
		panic(fmt.Sprintf("floor: unknown DocRef %T", ref))
	}
}

// BacksearchOffsets returns how many days before today each of n attempts
// looks: 0, 1, 3, 6, 10, ...
func BacksearchOffsets(n int) []int {
	out := make([]int, 0, max(n, 0))
	off := 0
	for i := 1; i <= n; i++ {
		out = append(out, off)
		off += i
	}
	return out
}

// fetch returns found=false for a 404 or the Clerk's not-found page.
func (s *FloorSource) fetch(ctx context.Context, ref DocRef) (body []byte, found bool, err error) {
	url := s.URL(ref)
	resp, err := s.get.Get(ctx, url)
	if err != nil {
		return nil, false, itemErr(ErrNetwork, url, err)
	}
	if resp.StatusCode == 404 || bytes.Contains(resp.Body, []byte(notFoundMarker)) {
		return nil, false, nil
	}
	if !resp.OK() {
		return nil, false, itemErr(ErrNetwork, url, fmt.Errorf("status %d", resp.StatusCode))
	}
	return resp.Body, true, nil
}

// Latest walks back from today in US/Eastern until a day document exists.
// Fetch failures are returned alongside and do not stop the search.
func (s *FloorSource) Latest(ctx context.Context) (DayRef, []byte, []error) {
	today := s.now().In(s.eastern)
	date := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, s.eastern)
	var errs []error
	for i := 1; i <= s.cfg.BacksearchDays; i++ {
		if ctx.Err() != nil {
			errs = append(errs, fatalErr(ErrNetwork, s.cfg.BaseURL, ctx.Err()))
			break
		}
		ref := DayRef{Date: date}
		body, found, err := s.fetch(ctx, ref)
		if err != nil {
			errs = append(errs, err)
		}
		if found {
			return ref, body, errs
		}
		date = date.AddDate(0, 0, -i)
	}
	return DayRef{}, nil, errs
}

// AvailableSessions lists the bulk session documents the Clerk offers.
func (s *FloorSource) AvailableSessions(ctx context.Context) ([]SessionRef, error) {
	url := s.cfg.BaseURL + "/floor-download.aspx"
	resp, err := s.get.Get(ctx, url)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, fmt.Errorf("%s: status %d", url, resp.StatusCode)
	}
	doc, err := html.Parse(bytes.NewReader(resp.Body))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", url, err)
	}
	var out []SessionRef
	for _, href := range introLinks(doc) {
		parts := strings.Split(href, "-")
		if len(parts) < 3 {
			continue
		}
		congress, err1 := strconv.Atoi(parts[1])
		session, err2 := strconv.Atoi(parts[2])
		if err1 != nil || err2 != nil {
			continue
		}
		out = append(out, SessionRef{Congress: congress, Session: session})
	}
	return out, nil
}

// introLinks returns the hrefs of links inside div#intro_content.
func introLinks(n *html.Node) []string {
	var out []string
	var walk func(*html.Node, bool)
	walk = func(n *html.Node, inside bool) {
		if n.Type == html.ElementNode {
			if n.Data == "div" && attr(n, "id") == "intro_content" {
				inside = true
			}
			if inside && n.Data == "a" {
				if href := attr(n, "href"); href != "" {
					out = append(out, href)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c, inside)
		}
	}
	walk(n, false)
	return out
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

type committeeDoc struct {
	Type string `yaml:"type"`
	Name string `yaml:"name"`
}

// houseCommittees fetches the current House committee names.
func (s *FloorSource) houseCommittees(ctx context.Context) ([]string, error) {
	url := s.cfg.CommitteesURL
	resp, err := s.comGet.Get(ctx, url)
	if err != nil {
		return nil, itemErr(ErrNetwork, url, err)
	}
	if !resp.OK() {
		return nil, itemErr(ErrNetwork, url, fmt.Errorf("status %d", resp.StatusCode))
	}
	var docs []committeeDoc
	if err := yaml.Unmarshal(resp.Body, &docs); err != nil {
		return nil, itemErr(ErrParse, url, err)
	}
	var names []string
	for _, c := range docs {
		if c.Type == "house" {
			names = append(names, c.Name)
		}
	}
	return names, nil
}

// Scrape parses the configured session document, or else the latest day.
// With state_path set, a document identical to the last one is skipped.
func (s *FloorSource) Scrape(ctx context.Context) iter.Seq2[model.Record, error] {
	return func(yield func(model.Record, error) bool) {
		var ref DocRef
		var body []byte
		if s.cfg.Congress > 0 {
			sr := SessionRef{Congress: s.cfg.Congress, Session: s.cfg.Session}
			b, found, err := s.fetch(ctx, sr)
			if err != nil {
				yield(nil, err)
				return
			}
			if !found {
				yield(nil, itemErr(ErrLookup, s.URL(sr), errors.New("no floor proceedings for session")))
				return
			}
			ref, body = sr, b
		} else {
			day, b, errs := s.Latest(ctx)
			for _, err := range errs {
				if !yield(nil, err) {
					return
				}
			}
			if b == nil {
				if ctx.Err() != nil {
					return
				}
				log.Printf("floor: no floor updates found between now and %d days ago", s.cfg.BacksearchDays)
				return
			}
			ref, body = day, b
		}

		key := fmt.Sprint(ref)
		if s.cfg.StatePath != "" {
			st, err := store.LoadFloorState(s.cfg.StatePath)
			if err != nil {
				log.Printf("floor: load state %s: %v", s.cfg.StatePath, err)
			} else if st.Unchanged(key, body) {
				log.Printf("floor: %s unchanged since last run, skipping", key)
				return
			}
		}

		for rec, err := range s.Parse(ctx, body) {
			if !yield(rec, err) {
				return
			}
			if err != nil && IsFatal(err) {
				return
			}
		}

		if s.cfg.StatePath != "" {
			st := store.FloorState{LastDay: key, LastDigest: store.Digest(body)}
			if err := store.SaveFloorState(s.cfg.StatePath, st); err != nil {
				log.Printf("floor: save state %s: %v", s.cfg.StatePath, err)
			}
		}
	}
}

// Parse yields one floor_update Event per floor_action in body. A bad action
// is reported and skipped; a malformed document ends the sequence.
func (s *FloorSource) Parse(ctx context.Context, body []byte) iter.Seq2[model.Record, error] {
	return func(yield func(model.Record, error) bool) {
		root, err := parseXMLTree(body)
		if err != nil {
			yield(nil, fatalErr(ErrParse, "floor document", err))
			return
		}
		congress := ""
		if lc := root.First("legislative_congress"); lc != nil {
			congress = lc.Attr["congress"]
		}
		if congress == "" {
			yield(nil, fatalErr(ErrParse, "floor document", errors.New("missing legislative_congress@congress")))
			return
		}
		source := ""
		if ld := root.First("legislative_day"); ld != nil {
			if d, err := time.Parse("20060102", ld.Attr["date"]); err == nil {
				source = s.URL(DayRef{Date: d})
			}
		}
		if source == "" {
			yield(nil, fatalErr(ErrParse, "floor document", errors.New("missing or bad legislative_day@date")))
			return
		}

		committees, err := s.houseCommittees(ctx)
		if err != nil && !yield(nil, err) {
			return
		}

		for _, fas := range root.Find("floor_actions") {
			for _, fa := range fas.Children("floor_action") {
				if ctx.Err() != nil {
					yield(nil, fatalErr(ErrNetwork, source, ctx.Err()))
					return
				}
				scope := fa
				if s.scope == ScopeDocument {
					scope = root
				}
				ev, errs := s.buildEvent(ctx, fa, scope, congress, source, committees)
				for _, err := range errs {
					if !yield(nil, err) {
						return
					}
				}
				if ev != nil && !yield(ev, nil) {
					return
				}
			}
		}
	}
}

func (s *FloorSource) buildEvent(ctx context.Context, fa, scope *xmlNode, congress, source string, committees []string) (*model.Event, []error) {
	item := source + "#" + fa.Attr["unique-id"]
	at := fa.Child("action_time")
	if at == nil {
		return nil, []error{itemErr(ErrParse, item, errors.New("missing action_time"))}
	}
	local, err := time.ParseInLocation(floorTimeForm, at.Attr["for-search"], s.eastern)
	if err != nil {
		return nil, []error{itemErr(ErrParse, item, err)}
	}
	text := ""
	if d := fa.Child("action_description"); d != nil {
		text = d.Text()
	}

	name := fmt.Sprintf("House Floor Update on %s at %s.", local.Format("2006-01-02"), local.Format("15:04:05"))
	key := fa.Attr["unique-id"]
	if key == "" {
		key = source + "|" + local.Format(floorTimeForm) + "|" + fa.Attr["act-id"]
	}
	ev := model.NewEvent(key, name, local.UTC(), floorTimezone, houseFloor, text, "floor_update")
	ev.AddSource(source, floorSrcNote)
	ev.Extras["act-id"] = fa.Attr["act-id"]
	ev.Extras["unique-id"] = fa.Attr["unique-id"]

	var errs []error
	bills := ev.AddAgendaItem("Bills referenced by this update.")
	for _, a := range scope.Links("bill") {
		label := a.Text()
		bills.AddBill(label, model.PseudoID(map[string]string{
			"identifier": refdata.BillCodeToID(label),
			"congress":   congress,
		}), "Bill was referenced on the House floor.")
	}

	laws := ev.AddAgendaItem("Public laws referenced by this update.")
	for _, a := range scope.Links("publaw") {
		fields, err := s.lawBill(ctx, a.Attr["href"])
		if err != nil {
			errs = append(errs, err)
			continue
		}
		laws.AddBill(a.Text(), model.PseudoID(fields), "Law was referenced on the House floor.")
	}

	votes := ev.AddAgendaItem("Votes referenced by this update.")
	for _, a := range scope.Links("vote") {
		label := a.Text()
		votes.AddVote(label, model.PseudoID(map[string]string{
			"identifier": refdata.VoteCodeToID(label),
			"congress":   congress,
		}), "Vote was referenced on the House floor.")
	}

	for _, a := range scope.Links("report") {
		ev.AddDocument("Document referenced by this update.", a.Attr["href"], "text/html")
	}

	for _, c := range committees {
		if strings.Contains(text, strings.ReplaceAll(c, "House ", "")) {
			ev.AddCommittee(c, model.PseudoID(map[string]string{"name": c}))
		}
	}
	for _, who := range refdata.PersonRegex.FindAllString(text, -1) {
		ev.AddPerson(who, refdata.TitleChamber(who), "Legislator was named on the House floor.")
	}
	return ev, errs
}
