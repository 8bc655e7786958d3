// Package traceability turns a package's provenance into the text block and
// QR image that travel with the physical goods.
package traceability

import (
	"errors"
	"fmt"
	"strings"

	"shrimp-trace/internal/model"
)

const dateLayout = "2006-01-02"

var ErrIncompletePackage = errors.New("package is missing product or company details")

// BuildPayload renders the provenance of p as fixed-order plain text.
// p must have Product, FarmingCompany and ExportingCompany loaded.
func BuildPayload(p *model.Package) (string, error) {
	if p == nil || p.Product == nil || p.FarmingCompany == nil || p.ExportingCompany == nil {
		return "", ErrIncompletePackage
	}

	lines := []string{
		"Package traceability record",
		fmt.Sprintf("Batch number: %s", p.BatchNumber),
		fmt.Sprintf("Product: %s", p.Product.Name),
		fmt.Sprintf("Shrimp type: %s", p.Product.ShrimpType),
		fmt.Sprintf("Farming company: %s", p.FarmingCompany.Name),
		fmt.Sprintf("Exporting company: %s", p.ExportingCompany.Name),
		fmt.Sprintf("Weight per package: %s kg", p.PackageWeight.StringFixed(2)),
		fmt.Sprintf("Number of packages: %d", p.Quantity),
		fmt.Sprintf("Total weight: %s kg", p.TotalWeight().StringFixed(2)),
		fmt.Sprintf("Production date: %s", p.ProductionDate.Format(dateLayout)),
		fmt.Sprintf("Expiration date: %s", p.ExpirationDate.Format(dateLayout)),
		fmt.Sprintf("Support code: %s", p.Product.SupportCode),
	}
	return strings.Join(lines, "\n"), nil
}
