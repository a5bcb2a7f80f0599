package source

import (
	"context"
	"fmt"
	"iter"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"civicdata/us-ingester/internal/config"
	"civicdata/us-ingester/internal/model"
	"civicdata/us-ingester/internal/util"
)

const (
	houseName  = "United States House of Representatives"
	senateName = "United States Senate"
	rosterNote = "unitedstates project on GitHub"
)

// LegislatorSource emits chambers, posts, people and memberships from the
// congress-legislators rosters.
type LegislatorSource struct {
	cfg config.LegislatorsConfig
	get *util.Getter

	house  *model.Organization
	senate *model.Organization
}

func NewLegislatorSource(cfg config.LegislatorsConfig) *LegislatorSource {
	return &LegislatorSource{cfg: cfg, get: newGetter("roster", cfg.HTTP)}
}

func (s *LegislatorSource) Name() string { return "legislators" }

func (s *LegislatorSource) rosterURL(name string) string {
	return s.cfg.BaseURL + "/" + name + ".yaml"
}

func (s *LegislatorSource) imageURL(bioguide string) string {
	size := s.cfg.ImageSize
	if size == "" {
		size = "450x550"
	}
	return s.cfg.ImageBaseURL + "/" + size + "/" + bioguide + ".jpg"
}

type termDoc struct {
	Type     string `yaml:"type"`
	Start    string `yaml:"start"`
	End      string `yaml:"end"`
	State    string `yaml:"state"`
	District *int   `yaml:"district"`
	Party    string `yaml:"party"`
}

type legislatorDoc struct {
	ID   map[string]any `yaml:"id"`
	Name struct {
		First        string `yaml:"first"`
		Last         string `yaml:"last"`
		OfficialFull string `yaml:"official_full"`
	} `yaml:"name"`
	Bio struct {
		Birthday string `yaml:"birthday"`
	} `yaml:"bio"`
	Terms []termDoc `yaml:"terms"`
}

func (d *legislatorDoc) displayName() string {
	if d.Name.OfficialFull != "" {
		return d.Name.OfficialFull
	}
	return d.Name.First + " " + d.Name.Last
}

func (s *LegislatorSource) Scrape(ctx context.Context) iter.Seq2[model.Record, error] {
	return func(yield func(model.Record, error) bool) {
		for rec := range s.EmitChambers() {
			if !yield(rec, nil) {
				return
			}
		}
		for rec, err := range s.EmitLegislators(ctx, s.cfg.Rosters) {
			if !yield(rec, err) {
				return
			}
		}
	}
}

// EmitChambers yields the House and Senate and keeps them for EmitLegislators.
func (s *LegislatorSource) EmitChambers() iter.Seq[model.Record] {
	return func(yield func(model.Record) bool) {
		s.chambers()
		if !yield(s.house) {
			return
		}
		yield(s.senate)
	}
}

func (s *LegislatorSource) chambers() {
	if s.house != nil && s.senate != nil {
		return
	}
	src := s.rosterURL("legislators-current")
	s.house = model.NewOrganization(houseName, "legislature")
	s.house.AddSource(src, "")
	s.senate = model.NewOrganization(senateName, "legislature")
	s.senate.AddSource(src, "")
}

// EmitLegislators processes each roster with its own post and person caches.
// A roster that cannot be fetched or decoded is reported and skipped.
func (s *LegislatorSource) EmitLegislators(ctx context.Context, rosters []string) iter.Seq2[model.Record, error] {
	return func(yield func(model.Record, error) bool) {
		s.chambers()
		for _, name := range rosters {
			url := s.rosterURL(name)
			people, err := s.fetchRoster(ctx, url)
			if err != nil {
				if !yield(nil, err) {
					return
				}
				continue
			}
			if !s.emitRoster(url, people, yield) {
				return
			}
		}
	}
}

func (s *LegislatorSource) fetchRoster(ctx context.Context, url string) ([]legislatorDoc, error) {
	resp, err := s.get.Get(ctx, url)
	if err != nil {
		return nil, itemErr(ErrNetwork, url, err)
	}
	if !resp.OK() {
		return nil, itemErr(ErrNetwork, url, fmt.Errorf("status %d", resp.StatusCode))
	}
	var people []legislatorDoc
	if err := yaml.Unmarshal(resp.Body, &people); err != nil {
		return nil, itemErr(ErrParse, url, err)
	}
	return people, nil
}

type cachedPerson struct {
	person  *model.Person
	hasTerm bool
}

// rosterState is the per-roster cache of posts and people.
type rosterState struct {
	posts  map[string]*model.Post
	people map[string]*cachedPerson
	order  []*cachedPerson
}

func newRosterState() *rosterState {
	return &rosterState{posts: map[string]*model.Post{}, people: map[string]*cachedPerson{}}
}

func (st *rosterState) person(name, birth, source string) *cachedPerson {
	key := name + "\x00" + birth
	if cp, ok := st.people[key]; ok {
		return cp
	}
	p := model.NewPerson(name, birth)
	p.AddSource(source, rosterNote)
	cp := &cachedPerson{person: p}
	st.people[key] = cp
	st.order = append(st.order, cp)
	return cp
}

func (s *LegislatorSource) emitRoster(url string, people []legislatorDoc, yield func(model.Record, error) bool) bool {
	st := newRosterState()
	for i := range people {
		doc := &people[i]
		cp := st.person(doc.displayName(), doc.Bio.Birthday, url)
		who := cp.person

		for _, term := range doc.Terms {
			recs, err := s.termRecords(st, who, term)
			if err != nil {
				if !yield(nil, itemErr(ErrLookup, fmt.Sprintf("%s#%s", url, who.Name), err)) {
					return false
				}
				continue
			}
			cp.hasTerm = true
			for _, rec := range recs {
				if !yield(rec, nil) {
					return false
				}
			}
		}
		s.addIdentifiers(who, doc.ID)
	}
	for _, cp := range st.order {
		if cp.hasTerm && !yield(cp.person, nil) {
			return false
		}
	}
	return true
}

// termRecords returns the new post (if any), the seat membership and the
// party membership (if any) for one term.
func (s *LegislatorSource) termRecords(st *rosterState, who *model.Person, t termDoc) ([]model.Record, error) {
	var chamber *model.Organization
	var role, label string
	division := "ocd-division/country:us/state:" + strings.ToLower(t.State)
	switch t.Type {
	case "rep":
		chamber, role = s.house, "Representative"
		if t.District == nil {
			label = "Representative for " + t.State
		} else {
			label = fmt.Sprintf("Representative for District %d in %s", *t.District, t.State)
			if *t.District != 0 {
				division += "/cd:" + strconv.Itoa(*t.District)
			}
		}
	case "sen":
		chamber, role = s.senate, "Senator"
		label = "Senator for " + t.State
	default:
		return nil, fmt.Errorf("term type %q: not rep or sen", t.Type)
	}

	var out []model.Record
	postKey := chamber.ID + "|" + division
	post, ok := st.posts[postKey]
	if !ok {
		post = model.NewPost(chamber.ID, division, label, role)
		st.posts[postKey] = post
		out = append(out, post)
	}
	out = append(out, model.NewMembership(who.ID, chamber.ID, post.ID, role, label, t.Start, t.End))

	party := t.Party
	if party == "Democrat" {
		party = "Democratic"
	}
	if party != "" {
		org := model.PseudoID(map[string]string{"classification": "party", "name": party})
		out = append(out, model.NewMembership(who.ID, org, "", "member", "", t.Start, t.End))
	}
	return out, nil
}

func (s *LegislatorSource) addIdentifiers(who *model.Person, ids map[string]any) {
	schemes := make([]string, 0, len(ids))
	for k := range ids {
		schemes = append(schemes, k)
	}
	sort.Strings(schemes)
	for _, scheme := range schemes {
		switch v := ids[scheme].(type) {
		case nil:
		case []any:
			for _, item := range v {
				who.AddIdentifier(fmt.Sprint(item), scheme)
			}
		default:
			value := fmt.Sprint(v)
			who.AddIdentifier(value, scheme)
			if scheme == "bioguide" {
				who.Image = s.imageURL(value)
			}
		}
	}
}
