package directory

import (
	"strings"
	"time"
	"unicode"

	contractx "github.com/tanpawarit/clinic-scheduling-assistant/agent/contract"
	"github.com/tanpawarit/clinic-scheduling-assistant/agent/scheduling"
	statex "github.com/tanpawarit/clinic-scheduling-assistant/agent/state"
)

var zeroTime time.Time

// query is the normalized form of caller-supplied identity fields.
type query struct {
	name  string
	dob   string
	ssn   string
	phone string
}

func normalize(fields statex.IdentityFields) (query, bool) {
	q := query{
		name:  normalizeName(fields.Name),
		ssn:   lastN(digits(fields.SSNLast4), 4),
		phone: digits(fields.Phone),
	}
	if dob, err := scheduling.ParseDate(fields.DOB, zeroTime); err == nil {
		q.dob = dob
	}
	if q.name == "" || q.dob == "" || (q.ssn == "" && q.phone == "") {
		return q, false
	}
	return q, true
}

func normalizeName(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

func digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func lastN(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}

// match applies the lookup priority: every field, then name+dob+ssn, then
// name+dob+phone. Records are assumed to carry normalized phone and ssn.
func match(records []statex.Profile, q query) (statex.Profile, bool) {
	var bySSN, byPhone *statex.Profile
	for i := range records {
		r := &records[i]
		if normalizeName(r.Name) != q.name || r.DOB != q.dob {
			continue
		}
		ssnOK := q.ssn != "" && digits(r.SSNLast4) == q.ssn
		phoneOK := q.phone != "" && digits(r.Phone) == q.phone
		switch {
		case ssnOK && phoneOK:
			return *r, true
		case ssnOK && bySSN == nil:
			bySSN = r
		case phoneOK && byPhone == nil:
			byPhone = r
		}
	}
	if bySSN != nil {
		return *bySSN, true
	}
	if byPhone != nil {
		return *byPhone, true
	}
	return statex.Profile{}, false
}

var _ contractx.Directory = (*MemoryDirectory)(nil)
