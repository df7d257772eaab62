package alert

import (
	"context"
	"fmt"
	"strings"

	"github.com/noah-isme/oilprice-ni/internal/common"
	"github.com/noah-isme/oilprice-ni/internal/pricing"
	"github.com/noah-isme/oilprice-ni/internal/quote"
)

// EmailNotifier sends a plain-text email when an alert triggers.
type EmailNotifier struct {
	Mail common.EmailSender
}

// Notify implements Notifier.
func (n EmailNotifier) Notify(_ context.Context, a Alert, cheapest quote.SupplierQuote) error {
	if n.Mail == nil {
		return nil
	}
	subject := fmt.Sprintf("Heating oil alert: %s for %gL in %s", cheapest.PriceDisplay, a.Volume, a.Postcode)

	var b strings.Builder
	fmt.Fprintf(&b, "Good news! %s is quoting %s for %g litres delivered to %s.\n", cheapest.Supplier, cheapest.PriceDisplay, a.Volume, a.Postcode)
	fmt.Fprintf(&b, "That is at or below your target of %s.\n", pricing.FormatPrice(a.TargetPrice))
	fmt.Fprintf(&b, "Unit price: %s\n", cheapest.PencePerLitre)
	if cheapest.Phone != "" {
		fmt.Fprintf(&b, "Phone: %s\n", cheapest.Phone)
	}
	if cheapest.Website != "" {
		fmt.Fprintf(&b, "Website: %s\n", cheapest.Website)
	}
	b.WriteString("\nPrices are estimates and may change. Confirm with the supplier before ordering.\n")

	if err := n.Mail.Send(a.Email, subject, b.String()); err != nil {
		return fmt.Errorf("send alert email: %w", err)
	}
	return nil
}
