package builtin

import (
	"log/slog"

	"github.com/nao1215/reconscan/internal/crawler"
	"github.com/nao1215/reconscan/internal/transport"
	"github.com/nao1215/reconscan/internal/worker"
)

// Env holds the shared dependencies of the built-in workers.
type Env struct {
	// Client dials targets. Nil means direct connections with default settings.
	Client *transport.Client

	// Resolver answers DNS queries. Nil means the system resolvers.
	Resolver *Resolver

	// Ports are scanned by net/port_scan. Empty means DefaultPorts.
	Ports []int

	// SpiderOptions configure the web/spider crawl.
	SpiderOptions []crawler.SpiderOption

	Logger *slog.Logger
}

// Register adds every built-in worker to reg.
func Register(reg *worker.Registry, env Env) error {
	if env.Logger == nil {
		env.Logger = slog.Default()
	}
	if env.Client == nil {
		client, err := transport.NewClient()
		if err != nil {
			return err
		}
		env.Client = client
	}
	if env.Resolver == nil {
		env.Resolver = NewResolver(nil, WithResolverLogger(env.Logger))
	}

	factories := map[string]worker.Factory{
		ServiceIDID:        constant(NewServiceID()),
		CertGrabID:         constant(NewCertGrab(env.Client)),
		CertEnumID:         constant(NewCertEnum()),
		DNSLookupID:        constant(NewDNSLookup(env.Resolver)),
		DNSReverseLookupID: constant(NewDNSReverseLookup(env.Resolver)),
		DNSMailserversID:   constant(NewDNSMailservers(env.Resolver)),
		DNSNameserversID:   constant(NewDNSNameservers(env.Resolver)),
		PortScanID:         constant(NewPortScan(env.Client, env.Ports)),
		WebProbeID:         constant(NewWebProbe(env.Client)),
		WebSpiderID:        constant(NewWebSpider(env.Client, env.SpiderOptions...)),
	}
	for _, id := range IDs() {
		if err := reg.Register(id, factories[id]); err != nil {
			return err
		}
	}
	return nil
}

// IDs returns the ids of the built-in workers in registration order.
func IDs() []string {
	return []string{
		DNSLookupID,
		DNSReverseLookupID,
		DNSMailserversID,
		DNSNameserversID,
		PortScanID,
		ServiceIDID,
		CertGrabID,
		CertEnumID,
		WebProbeID,
		WebSpiderID,
	}
}

// constant returns a factory handing out one stateless worker.
func constant(w worker.Worker) worker.Factory {
	return func() (worker.Worker, error) {
		return w, nil
	}
}
