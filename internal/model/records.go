package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Table names a record store table. Every Record belongs to exactly one.
type Table string

const (
	TableProducts Table = "products"
	TableLeads    Table = "leads"
)

type Record interface {
	Table() Table
}

// ProductRecord is the persisted state of one catalog entity, keyed by CRM.
type ProductRecord struct {
	ID           uuid.UUID    `json:"id"`
	CRM          string       `json:"crm"`
	Name         string       `json:"name"`
	Availability Availability `json:"availability"`
	Products     *Products    `json:"products,omitempty"`
	Creative     Creative     `json:"creative"`
	Medias       MediaBundle  `json:"medias"`
	Created      time.Time    `json:"created"`
	Updated      time.Time    `json:"updated"`
}

func (ProductRecord) Table() Table { return TableProducts }

type LeadRecord struct {
	ID      uuid.UUID `json:"id"`
	CRM     string    `json:"crm"`
	Created time.Time `json:"created"`
}

func (LeadRecord) Table() Table { return TableLeads }

// Digits keeps only ASCII digits; CRM ids are compared this way.
func Digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
