package builtin

import (
	"context"

	"github.com/nao1215/reconscan/internal/value"
	"github.com/nao1215/reconscan/internal/worker"
)

// ServiceIDID is the id of the service identification worker.
const ServiceIDID = "net/service_id"

// NewServiceID turns open ports with a known service into the values that
// service implies: a nameserver, a mail server or a website.
func NewServiceID() worker.Worker {
	return worker.New(worker.Descriptor{
		ID:          ServiceIDID,
		Summary:     "Identifies services running on open ports",
		Description: "Maps DNS, SMTP, HTTP and HTTPS services on open ports to nameservers, mail servers and websites.",
		Accepts:     []value.Kind{value.KindOpenPort},
		Outputs:     []value.Kind{value.KindNameserver, value.KindMailserver, value.KindWebsite},
		Intensity:   worker.Passive,
	}, func(_ context.Context, v value.Value, emit worker.Emit) error {
		port, ok := v.(value.OpenPort)
		if !ok {
			return nil
		}
		host := port.Host
		if host == "" {
			host = port.Address
		}

		switch port.Service {
		case "domain":
			emit(value.NewNameserver(host))
		case "smtp":
			emit(value.NewMailserver(host))
		case "http":
			if port.SSL {
				emit(value.NewWebsite("https", host, port.Number))
			} else {
				emit(value.NewWebsite("http", host, port.Number))
			}
		case "https", "https-alt":
			emit(value.NewWebsite("https", host, port.Number))
		}
		return nil
	})
}
