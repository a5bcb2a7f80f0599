package source

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"iter"
	"os"
	"path/filepath"
	"regexp"
	"sort"

	"civicdata/us-ingester/internal/config"
	"civicdata/us-ingester/internal/model"
	"civicdata/us-ingester/internal/refdata"
	"civicdata/us-ingester/internal/util"
)

var (
	billPattern    = regexp.MustCompile(`^.*/data/[0-9]+/bills/[^/]+/[^/]+/data\.json$`)
	versionPattern = regexp.MustCompile(`\.json$`)
	relatedBillID  = regexp.MustCompile(`^([a-z]+)(\d+)-(\d+)$`)
)

// BillSource walks the congress scraper output for bill data.json files.
type BillSource struct {
	cfg config.BillsConfig
	run CommandRunner
}

func NewBillSource(cfg config.BillsConfig) *BillSource {
	return &BillSource{cfg: cfg, run: execRunner}
}

func (s *BillSource) Name() string { return "bills" }

// flexString accepts both "113" and 113.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

type sponsorDoc struct {
	Name       string `json:"name"`
	ThomasID   string `json:"thomas_id"`
	BioguideID string `json:"bioguide_id"`
}

func (s sponsorDoc) scheme() (string, string) {
	if s.ThomasID == "" && s.BioguideID != "" {
		return "bioguide_id", s.BioguideID
	}
	return "thomas_id", s.ThomasID
}

type billDoc struct {
	BillType      string     `json:"bill_type"`
	Number        flexString `json:"number"`
	Congress      flexString `json:"congress"`
	OfficialTitle string     `json:"official_title"`
	URL           string     `json:"url"`
	IntroducedAt  string     `json:"introduced_at"`
	Subjects      []string   `json:"subjects"`
	Summary       *struct {
		As   string `json:"as"`
		Date string `json:"date"`
		Text string `json:"text"`
	} `json:"summary"`
	Titles []struct {
		Title string `json:"title"`
		Type  string `json:"type"`
	} `json:"titles"`
	RelatedBills []struct {
		BillID  string     `json:"bill_id"`
		Name    string     `json:"name"`
		Session flexString `json:"session"`
		Reason  string     `json:"reason"`
	} `json:"related_bills"`
	Sponsor    *sponsorDoc  `json:"sponsor"`
	Cosponsors []sponsorDoc `json:"cosponsors"`
	Actions    []struct {
		ActedAt string `json:"acted_at"`
		Text    string `json:"text"`
		Type    string `json:"type"`
	} `json:"actions"`
}

type versionDoc struct {
	IssuedOn    string            `json:"issued_on"`
	URLs        map[string]string `json:"urls"`
	VersionCode string            `json:"version_code"`
}

// Scrape runs the fetch step, then yields one Bill per data.json under
// data_dir. Per-file failures are yielded as *ItemError and skipped.
func (s *BillSource) Scrape(ctx context.Context) iter.Seq2[model.Record, error] {
	return func(yield func(model.Record, error) bool) {
		if !s.cfg.SkipFetch {
			for _, err := range s.RunFetch(ctx) {
				if !yield(nil, err) {
					return
				}
			}
		}
		for path := range util.FindFiles(s.cfg.DataDir, billPattern) {
			if err := ctx.Err(); err != nil {
				yield(nil, fatalErr(ErrIO, s.cfg.DataDir, err))
				return
			}
			bill, errs := s.parseBill(path)
			for _, err := range errs {
				if !yield(nil, err) {
					return
				}
			}
			if bill != nil && !yield(bill, nil) {
				return
			}
		}
	}
}

// parseBill maps one data.json. A nil bill means the file was skipped; the
// returned errors also cover skipped version files of a kept bill.
func (s *BillSource) parseBill(path string) (*model.Bill, []error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, []error{itemErr(ErrIO, path, err)}
	}
	var doc billDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, []error{itemErr(ErrParse, path, err)}
	}
	if doc.Number == "" || doc.Congress == "" {
		return nil, []error{itemErr(ErrParse, path, errors.New("missing number or congress"))}
	}
	bt, err := refdata.LookupType(doc.BillType)
	if err != nil {
		return nil, []error{itemErr(ErrLookup, path, err)}
	}

	bill := model.NewBill(bt.Canonical+" "+string(doc.Number), string(doc.Congress), doc.OfficialTitle, bt.Chamber)
	if doc.URL != "" {
		bill.AddSource(doc.URL, "all")
	}
	for _, subject := range doc.Subjects {
		bill.AddSubject(subject)
	}
	if doc.Summary != nil && doc.Summary.Text != "" {
		bill.AddAbstract(doc.Summary.Text, doc.Summary.As, doc.Summary.Date)
	}
	for _, t := range doc.Titles {
		bill.AddTitle(t.Title, t.Type)
	}
	for _, rb := range doc.RelatedBills {
		identifier, session := rb.Name, string(rb.Session)
		if m := relatedBillID.FindStringSubmatch(rb.BillID); m != nil {
			if rbt, err := refdata.LookupType(m[1]); err == nil {
				identifier, session = rbt.Canonical+" "+m[2], m[3]
			}
		}
		if identifier == "" {
			continue
		}
		relation := rb.Reason
		if relation == "" {
			relation = "companion"
		}
		bill.AddRelatedBill(identifier, session, relation)
	}
	if doc.Sponsor != nil {
		scheme, id := doc.Sponsor.scheme()
		bill.AddSponsorship(doc.Sponsor.Name, true, scheme, id, bt.Chamber)
	}
	for _, cs := range doc.Cosponsors {
		scheme, id := cs.scheme()
		bill.AddSponsorship(cs.Name, false, scheme, id, bt.Chamber)
	}

	bill.AddAction(model.Action{
		Description:    "date of introduction",
		Date:           datetimeToDate(doc.IntroducedAt),
		Organization:   "United States Congress",
		Chamber:        bt.Chamber,
		Classification: []string{"introduced"},
	})
	for _, a := range doc.Actions {
		bill.AddAction(model.Action{
			Description:    a.Text,
			Date:           datetimeToDate(a.ActedAt),
			Chamber:        bt.Chamber,
			Classification: []string{a.Type},
		})
	}

	var errs []error
	versionsDir := filepath.Join(filepath.Dir(path), "text-versions")
	for vpath := range util.FindFiles(versionsDir, versionPattern) {
		versions, err := parseVersion(vpath)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		for _, v := range versions {
			bill.AddVersion(v)
		}
	}
	return bill, errs
}

// parseVersion expands one text-versions file into a Version per format.
func parseVersion(path string) ([]model.Version, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, itemErr(ErrIO, path, err)
	}
	var doc versionDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, itemErr(ErrParse, path, err)
	}
	label, err := refdata.LookupVersion(doc.VersionCode)
	if err != nil {
		return nil, itemErr(ErrLookup, path, err)
	}
	formats := make([]string, 0, len(doc.URLs))
	for k := range doc.URLs {
		formats = append(formats, k)
	}
	sort.Strings(formats)
	out := make([]model.Version, 0, len(formats))
	for _, f := range formats {
		out = append(out, model.Version{
			Date:  datetimeToDate(doc.IssuedOn),
			Type:  doc.VersionCode,
			Name:  label,
			Links: []model.Link{{MediaType: f, URL: doc.URLs[f]}},
		})
	}
	return out, nil
}
