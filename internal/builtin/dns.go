package builtin

import (
	"context"

	"github.com/nao1215/reconscan/internal/value"
	"github.com/nao1215/reconscan/internal/worker"
)

// Worker ids of the DNS workers.
const (
	DNSLookupID        = "dns/lookup"
	DNSReverseLookupID = "dns/reverse_lookup"
	DNSMailserversID   = "dns/mailservers"
	DNSNameserversID   = "dns/nameservers"
)

// NewDNSLookup resolves domains and hosts to IP addresses.
func NewDNSLookup(r *Resolver) worker.Worker {
	return worker.New(worker.Descriptor{
		ID:          DNSLookupID,
		Summary:     "Looks up the IP addresses of a domain or host",
		Description: "Queries A and AAAA records and emits every address, tagged with the name it was resolved from.",
		Accepts:     []value.Kind{value.KindDomain, value.KindHost},
		Outputs:     []value.Kind{value.KindIP},
		Intensity:   worker.Passive,
	}, func(ctx context.Context, v value.Value, emit worker.Emit) error {
		name := v.String()
		addrs, err := r.LookupIP(ctx, name)
		for _, addr := range addrs {
			emit(value.NewIP(addr.String(), name))
		}
		return err
	})
}

// NewDNSReverseLookup resolves IP addresses back to host names.
func NewDNSReverseLookup(r *Resolver) worker.Worker {
	return worker.New(worker.Descriptor{
		ID:          DNSReverseLookupID,
		Summary:     "Looks up the host names of an IP address",
		Description: "Queries PTR records of the address and emits every host name.",
		Accepts:     []value.Kind{value.KindIP},
		Outputs:     []value.Kind{value.KindHost},
		Intensity:   worker.Passive,
	}, func(ctx context.Context, v value.Value, emit worker.Emit) error {
		names, err := r.LookupPTR(ctx, v.String())
		for _, name := range names {
			emit(value.NewHost(name))
		}
		return err
	})
}

// NewDNSMailservers finds the mail servers of a domain.
func NewDNSMailservers(r *Resolver) worker.Worker {
	return worker.New(worker.Descriptor{
		ID:          DNSMailserversID,
		Summary:     "Looks up the mail servers of a domain",
		Description: "Queries MX records of the domain.",
		Accepts:     []value.Kind{value.KindDomain},
		Outputs:     []value.Kind{value.KindMailserver},
		Intensity:   worker.Passive,
	}, func(ctx context.Context, v value.Value, emit worker.Emit) error {
		hosts, err := r.LookupMX(ctx, v.String())
		for _, host := range hosts {
			emit(value.NewMailserver(host))
		}
		return err
	})
}

// NewDNSNameservers finds the nameservers of a domain.
func NewDNSNameservers(r *Resolver) worker.Worker {
	return worker.New(worker.Descriptor{
		ID:          DNSNameserversID,
		Summary:     "Looks up the nameservers of a domain",
		Description: "Queries NS records of the domain.",
		Accepts:     []value.Kind{value.KindDomain},
		Outputs:     []value.Kind{value.KindNameserver},
		Intensity:   worker.Passive,
	}, func(ctx context.Context, v value.Value, emit worker.Emit) error {
		hosts, err := r.LookupNS(ctx, v.String())
		for _, host := range hosts {
			emit(value.NewNameserver(host))
		}
		return err
	})
}
