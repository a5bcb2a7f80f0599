package model

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPseudoIDSortsKeys(t *testing.T) {
	got := PseudoID(map[string]string{"identifier": "HR 3", "congress": "113"})
	assert.Equal(t, `~{"congress": "113", "identifier": "HR 3"}`, got)

	assert.Equal(t, `~{"classification": "party", "name": "Democratic"}`,
		PseudoID(map[string]string{"name": "Democratic", "classification": "party"}))
}

func TestPseudoIDEscapesQuotes(t *testing.T) {
	assert.Equal(t, `~{"name": "Committee on \"Rules\" & Such"}`,
		PseudoID(map[string]string{"name": `Committee on "Rules" & Such`}))
}

func TestNewIDIsDeterministicPerKind(t *testing.T) {
	a := NewID("bill", "113", "HR 1")
	b := NewID("bill", "113", "HR 1")
	c := NewID("bill", "113", "HR 2")
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.True(t, strings.HasPrefix(a, "ocd-bill/"))
	assert.NotEqual(t, NewID("post", "x"), NewID("person", "x"))
}

func TestPersonIdentifiersAreDeduplicated(t *testing.T) {
	p := NewPerson("Jane Doe", "1970-01-01")
	p.AddIdentifier("D000001", "bioguide")
	p.AddIdentifier("D000001", "bioguide")
	p.AddIdentifier("123", "govtrack")
	assert.Len(t, p.Identifiers, 2)

	p.AddSource("https://example.org/a.yaml", "roster")
	p.AddSource("https://example.org/a.yaml", "roster")
	assert.Len(t, p.Sources, 1)
}

func TestEventAgendaOrder(t *testing.T) {
	e := NewEvent("u1", "n", zeroTime, "US/Eastern", Location{}, "d", "floor_update")
	first := e.AddAgendaItem("Bills")
	second := e.AddAgendaItem("Votes")
	first.AddBill("H.R. 3", "~{}", "seen")
	assert.Equal(t, 0, first.Order)
	assert.Equal(t, 1, second.Order)
	assert.Empty(t, second.RelatedEntities)
	assert.Equal(t, "bill", e.Agenda[0].RelatedEntities[0].EntityType)
}

func TestEnvelopeKey(t *testing.T) {
	b := NewBill("HR 1", "113", "t", "lower")
	env := Envelope{Source: "bills", Record: b}
	key := env.Key()
	assert.True(t, strings.HasPrefix(key, "bills::bill::"+b.ID+"::"), key)
	assert.Equal(t, key, Envelope{Source: "bills", Record: NewBill("HR 1", "113", "t", "lower")}.Key())

	b.Actions = append(b.Actions, Action{Description: "Referred", Date: "2013-01-03"})
	assert.NotEqual(t, key, env.Key())
}

var zeroTime = time.Time{}
