// Package refdata holds the static lookup tables used to normalize
// unitedstates/congress and House Clerk data.
package refdata

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// ErrUnknownCode is wrapped by every failed table lookup.
var ErrUnknownCode = errors.New("unknown code")

// BillType is the chamber and canonical identifier prefix of a bill-type code.
type BillType struct {
	Chamber   string
	Canonical string
}

// https://github.com/unitedstates/congress/wiki/bills#basic-information
var TypeMap = map[string]BillType{
	"hr":      {Chamber: "lower", Canonical: "HR"},      // H.R. 1234
	"hres":    {Chamber: "lower", Canonical: "HRes"},    // H.Res. 1234
	"hconres": {Chamber: "joint", Canonical: "HConRes"}, // H.Con.Res. 1234
	"hjres":   {Chamber: "joint", Canonical: "HJRes"},   // H.J.Res. 1234
	"s":       {Chamber: "upper", Canonical: "S"},       // S. 1234
	"sres":    {Chamber: "upper", Canonical: "SRes"},    // S.Res. 1234
	"sconres": {Chamber: "joint", Canonical: "SConRes"}, // S.Con.Res. 1234
	"sjres":   {Chamber: "joint", Canonical: "SJRes"},   // S.J.Res. 1234
}

func LookupType(code string) (BillType, error) {
	bt, ok := TypeMap[code]
	if !ok {
		return BillType{}, fmt.Errorf("bill type %q: %w", code, ErrUnknownCode)
	}
	return bt, nil
}

// http://www.gpo.gov/help/index.html#about_congressional_bills.htm
var VersionMap = map[string]string{
	"as":   "Amendment Ordered to be Printed Senate",
	"ash":  "Additional Sponsors House",
	"ath":  "Agreed to House",
	"ats":  "Agreed to Senate",
	"cdh":  "Committee Discharged House",
	"cds":  "Committee Discharged Senate",
	"cph":  "Considered and Passed House",
	"cps":  "Considered and Passed Senate",
	"eah":  "Engrossed Amendment House",
	"eas":  "Engrossed Amendment Senate",
	"eh":   "Engrossed in House",
	"enr":  "Enrolled Bill",
	"eph":  "Engrossed and Deemed Passed by House",
	"es":   "Engrossed in Senate",
	"fah":  "Failed Amendment House",
	"fph":  "Failed Passage House",
	"fps":  "Failed Passage Senate",
	"hdh":  "Held at Desk House",
	"hds":  "Held at Desk Senate",
	"ih":   "Introduced in House",
	"iph":  "Indefinitely Postponed House",
	"ips":  "Indefinitely Postponed Senate",
	"is":   "Introduced in Senate",
	"lth":  "Laid on Table in House",
	"lts":  "Laid on Table in Senate",
	"oph":  "Ordered to be Printed House",
	"ops":  "Ordered to be Printed Senate",
	"pap":  "Printed as Passed",
	"pav":  "Previous Action Vitiated",
	"pch":  "Placed on Calendar House",
	"pcs":  "Placed on Calendar Senate",
	"pp":   "Public Print",
	"pwah": "Ordered to be Printed with House Amendment",
	"rah":  "Referred with Amendments House",
	"ras":  "Referred with Amendments Senate",
	"rch":  "Reference Change House",
	"rcs":  "Reference Change Senate",
	"rdh":  "Received in House",
	"rds":  "Received in Senate",
	"reah": "Re-engrossed Amendment House",
	"renr": "Re-enrolled Bill",
	"res":  "Re-engrossed Amendment Senate",
	"rfh":  "Referred in House",
	"rfs":  "Referred in Senate",
	"rh":   "Reported in House",
	"rih":  "Referral Instructions House",
	"ris":  "Referral Instructions Senate",
	"rs":   "Reported in Senate",
	"rth":  "Referred to Committee House",
	"rts":  "Referred to Committee Senate",
	"sas":  "Additional Sponsors Senate",
	"sc":   "Sponsor Change",
}

func LookupVersion(code string) (string, error) {
	label, ok := VersionMap[code]
	if !ok {
		return "", fmt.Errorf("version code %q: %w", code, ErrUnknownCode)
	}
	return label, nil
}

var CodeToState = map[string]string{
	"AA": "Armed Forces Americas", "AE": "Armed Forces Middle East", "AK": "Alaska",
	"AL": "Alabama", "AP": "Armed Forces Pacific", "AR": "Arkansas",
	"AS": "American Samoa", "AZ": "Arizona", "CA": "California",
	"CO": "Colorado", "CT": "Connecticut", "DC": "District of Columbia",
	"DE": "Delaware", "FL": "Florida", "FM": "Federated States of Micronesia",
	"GA": "Georgia", "GU": "Guam", "HI": "Hawaii",
	"IA": "Iowa", "ID": "Idaho", "IL": "Illinois",
	"IN": "Indiana", "KS": "Kansas", "KY": "Kentucky",
	"LA": "Louisiana", "MA": "Massachusetts", "MD": "Maryland",
	"ME": "Maine", "MH": "Marshall Islands", "MI": "Michigan",
	"MN": "Minnesota", "MO": "Missouri", "MP": "Northern Mariana Islands",
	"MS": "Mississippi", "MT": "Montana", "NC": "North Carolina",
	"ND": "North Dakota", "NE": "Nebraska", "NH": "New Hampshire",
	"NJ": "New Jersey", "NM": "New Mexico", "NV": "Nevada",
	"NY": "New York", "OH": "Ohio", "OK": "Oklahoma",
	"OR": "Oregon", "PA": "Pennsylvania", "PR": "Puerto Rico",
	"PW": "Palau", "RI": "Rhode Island", "SC": "South Carolina",
	"SD": "South Dakota", "TN": "Tennessee", "TX": "Texas",
	"UT": "Utah", "VA": "Virginia", "VI": "Virgin Islands",
	"VT": "Vermont", "WA": "Washington", "WI": "Wisconsin",
	"WV": "West Virginia", "WY": "Wyoming",
}

var NamePrefixes = []string{
	"Ms.", "Mrs.", "Mr.", "Dr.", "Miss", "Reverend",
	"Sister", "Pastor", "Hon.", "the Honorable",
	"the Speaker", "Rep.", "Sen.", "Representative", "Senator",
	"Rabbi", "Governor", "Gov.", "Congressman",
}

var TitleChamberMap = map[string]string{
	"Rep": "lower",
	"Sen": "upper",
}

// TitleChamber returns the chamber implied by the title a mention starts
// with ("Rep. Smith", "Senator Jones"), or "".
func TitleChamber(mention string) string {
	for title, chamber := range TitleChamberMap {
		if strings.HasPrefix(mention, title) {
			return chamber
		}
	}
	return ""
}

// BillRegex matches bill citations such as "H.R. 3", "S. 12" or "H. J. Res. 7".
var BillRegex = regexp.MustCompile(`(?i)((S\.|H\.)(\s*J\.|\s?R\.|\s?Con\.|\s*)(\s*Res\.?)*\s*\d+)`)

// PersonRegex catches many, not all, "Mr. Smith of CA" style mentions.
var PersonRegex = buildPersonRegex()

func buildPersonRegex() *regexp.Regexp {
	prefixes := make([]string, len(NamePrefixes))
	for i, p := range NamePrefixes {
		prefixes[i] = regexp.QuoteMeta(p)
	}
	states := make([]string, 0, len(CodeToState))
	for code := range CodeToState {
		states = append(states, code)
	}
	sort.Strings(states)
	return regexp.MustCompile(`(` + strings.Join(prefixes, "|") + `)\s([A-Z]\S+\s)+(of\s)?(\()?(` +
		strings.Join(states, "|") + `)(\))?`)
}

// BillCodeToID turns a citation like "H. J. Res. 12" into "HJRes 12".
func BillCodeToID(code string) string {
	parts := strings.Fields(strings.ReplaceAll(code, ".", ""))
	if len(parts) == 0 {
		return ""
	}
	return strings.Join(parts[:len(parts)-1], "") + " " + parts[len(parts)-1]
}

var trailingNumber = regexp.MustCompile(`(\d+)\s*$`)

// VoteCodeToID returns the roll-call number at the end of a vote link text,
// or "" when there is none.
func VoteCodeToID(code string) string {
	m := trailingNumber.FindStringSubmatch(code)
	if m == nil {
		return ""
	}
	return m[1]
}
