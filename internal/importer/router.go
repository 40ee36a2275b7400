package importer

import (
	"strings"

	"github.com/kha159-create/alsani-cockpit/internal/docstore"
)

// ItemRouter picks the collection a product sale is stored in.
type ItemRouter interface {
	Route(alias string) string
}

// PrefixRouter sends aliases starting with any of DuvetPrefixes to the
// duvet sales collection and everything else to general sales.
type PrefixRouter struct {
	DuvetPrefixes []string
}

// DefaultRouter routes aliases starting with "4" to duvets.
var DefaultRouter = PrefixRouter{DuvetPrefixes: []string{"4"}}

func (p PrefixRouter) Route(alias string) string {
	a := strings.TrimSpace(alias)
	for _, prefix := range p.DuvetPrefixes {
		if prefix != "" && strings.HasPrefix(a, prefix) {
			return docstore.KingDuvetSales
		}
	}
	return docstore.SalesTransactions
}
