package notify

import (
	"bytes"
	"html/template"

	"github.com/ariefcatur/storefront-orders/internal/orders"
)

var orderTmpl = template.Must(template.New("order").Funcs(template.FuncMap{
	"inc": func(i int) int { return i + 1 },
}).Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #222;">
  <h2>New order received</h2>
  <h3>Customer</h3>
  <p>
    <strong>Name:</strong> {{.Name}}<br>
    <strong>Email:</strong> {{.Email}}<br>
    <strong>Phone:</strong> {{.Phone}}<br>
    <strong>Address:</strong> {{.Address}}, {{.City}}
    {{- if .Notes}}<br>
    <strong>Notes:</strong> {{.Notes}}{{end}}
  </p>
  <h3>Items</h3>
  <table cellpadding="6" cellspacing="0" border="1" style="border-collapse: collapse;">
    <thead>
      <tr><th align="left">#</th><th align="left">Product</th><th align="right">Price</th></tr>
    </thead>
    <tbody>
    {{- range $i, $it := .Items}}
      <tr><td>{{inc $i}}</td><td>{{$it.Name}}</td><td align="right">{{$it.Price}}</td></tr>
    {{- else}}
      <tr><td colspan="3">No items</td></tr>
    {{- end}}
    </tbody>
  </table>
  <p><strong>Total:</strong> {{.Total}}</p>
  <p><strong>Payment method:</strong> {{.PaymentMethod}}</p>
</body>
</html>
`))

// Render produces the HTML body of the operator notification.
func Render(d orders.Details) (string, error) {
	var buf bytes.Buffer
	if err := orderTmpl.Execute(&buf, d); err != nil {
		return "", err
	}
	return buf.String(), nil
}
