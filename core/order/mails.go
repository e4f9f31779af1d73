package order

import (
	"bytes"
	"fmt"
	"net/mail"
	"text/tabwriter"

	"github.com/trezcool/chakula/core"
	"github.com/trezcool/chakula/core/restaurant"
	"github.com/trezcool/chakula/core/user"
)

// FormatMoney renders an amount of minor units as major units with 2 decimals.
func FormatMoney(amount int64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	return fmt.Sprintf("%s%d.%02d", sign, amount/100, amount%100)
}

func (svc *service) orderData(ord Order, rest restaurant.Restaurant, name string) map[string]interface{} {
	items := make([]map[string]interface{}, 0, len(ord.Items))
	for _, it := range ord.Items {
		items = append(items, map[string]interface{}{
			"Name":     it.Name,
			"Quantity": it.Quantity,
			"Amount":   FormatMoney(it.UnitPrice * int64(it.Quantity)),
		})
	}
	data := map[string]interface{}{
		"Name":       name,
		"OrderID":    ord.ID,
		"Restaurant": rest.Name,
		"Address":    ord.Address,
		"Items":      items,
		"Subtotal":   FormatMoney(ord.Subtotal),
		"ServiceFee": FormatMoney(ord.ServiceFee),
		"Total":      FormatMoney(ord.Total),
		"Minutes":    0,
	}
	if ord.EstimatedMinutes.Valid {
		data["Minutes"] = ord.EstimatedMinutes.Int
	}
	return data
}

func (svc *service) sendOrderPlacedMail(ord Order, rest restaurant.Restaurant, owner, client user.User) {
	data := svc.orderData(ord, rest, owner.FullName())
	data["Client"] = client.FullName()
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{owner.MailAddress()},
		Subject:      "New order received",
		TemplateName: "order_placed",
		TemplateData: data,
	})
}

func (svc *service) sendOnTheWayMail(ord Order, rest restaurant.Restaurant, client user.User) {
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{client.MailAddress()},
		Subject:      "Your order is on the way",
		TemplateName: "order_on_the_way",
		TemplateData: svc.orderData(ord, rest, client.FullName()),
	})
}

func (svc *service) sendAssignedMail(ord Order, rest restaurant.Restaurant, courierUsr user.User) {
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{courierUsr.MailAddress()},
		Subject:      "New delivery assigned",
		TemplateName: "order_assigned",
		TemplateData: svc.orderData(ord, rest, courierUsr.FullName()),
	})
}

func (svc *service) sendReceiptMail(ord Order, rest restaurant.Restaurant, client user.User) {
	msg := &core.EmailMessage{
		To:           []mail.Address{client.MailAddress()},
		Subject:      "Your order has been delivered",
		TemplateName: "order_delivered",
		TemplateData: svc.orderData(ord, rest, client.FullName()),
	}
	if err := msg.Attach(receipt(ord, rest), "receipt-"+ord.ID+".txt", "text/plain"); err != nil {
		svc.logger.Error(fmt.Sprintf("attaching receipt: %v", err), err)
	}
	svc.mailSvc.SendMessages(msg)
}

// receipt renders a plain text receipt of a paid order.
func receipt(ord Order, rest restaurant.Restaurant) *bytes.Buffer {
	buf := new(bytes.Buffer)
	_, _ = fmt.Fprintf(buf, "%s\nOrder %s\n", rest.Name, ord.ID)
	if ord.DeliveredAt.Valid {
		_, _ = fmt.Fprintf(buf, "Delivered %s\n", ord.DeliveredAt.Time.Format("2006-01-02 15:04 MST"))
	}
	_, _ = fmt.Fprintln(buf)

	w := tabwriter.NewWriter(buf, 0, 4, 2, ' ', tabwriter.AlignRight)
	for _, it := range ord.Items {
		_, _ = fmt.Fprintf(w, "%s\tx%d\t%s\t\n", it.Name, it.Quantity, FormatMoney(it.UnitPrice*int64(it.Quantity)))
	}
	_, _ = fmt.Fprintf(w, "Subtotal\t\t%s\t\n", FormatMoney(ord.Subtotal))
	_, _ = fmt.Fprintf(w, "Service fee\t\t%s\t\n", FormatMoney(ord.ServiceFee))
	_, _ = fmt.Fprintf(w, "Total\t\t%s\t\n", FormatMoney(ord.Total))
	_ = w.Flush()
	return buf
}
