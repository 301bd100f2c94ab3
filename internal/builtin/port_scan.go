package builtin

import (
	"context"
	"net"
	"strconv"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/reconscan/internal/transport"
	"github.com/nao1215/reconscan/internal/value"
	"github.com/nao1215/reconscan/internal/worker"
)

// PortScanID is the id of the TCP port scanner.
const PortScanID = "net/port_scan"

// portScanParallelism bounds the connection attempts of one invocation.
const portScanParallelism = 16

// service is what a port number usually carries.
type service struct {
	name string
	ssl  bool
}

var wellKnownPorts = map[int]service{
	21:   {name: "ftp"},
	22:   {name: "ssh"},
	25:   {name: "smtp"},
	53:   {name: "domain"},
	80:   {name: "http"},
	110:  {name: "pop3"},
	143:  {name: "imap"},
	443:  {name: "https", ssl: true},
	465:  {name: "smtps", ssl: true},
	587:  {name: "submission"},
	993:  {name: "imaps", ssl: true},
	995:  {name: "pop3s", ssl: true},
	3306: {name: "mysql"},
	5432: {name: "postgresql"},
	8080: {name: "http"},
	8443: {name: "https-alt", ssl: true},
}

// DefaultPorts are scanned when no port list is configured.
var DefaultPorts = []int{21, 22, 25, 53, 80, 110, 143, 443, 465, 587, 993, 995, 3306, 5432, 8080, 8443}

// NewPortScan probes TCP ports of an IP address with full connects and emits
// the open ones with the service usually found on that port.
func NewPortScan(client *transport.Client, ports []int) worker.Worker {
	if len(ports) == 0 {
		ports = DefaultPorts
	}
	ports = append([]int(nil), ports...)

	return worker.New(worker.Descriptor{
		ID:          PortScanID,
		Summary:     "Scans an IP address for open TCP ports",
		Description: "Connects to each configured TCP port and emits the open ports, guessing the service and SSL/TLS from the port number.",
		Accepts:     []value.Kind{value.KindIP},
		Outputs:     []value.Kind{value.KindOpenPort},
		Intensity:   worker.Active,
	}, func(ctx context.Context, v value.Value, emit worker.Emit) error {
		ip, ok := v.(value.IP)
		if !ok {
			return nil
		}

		var mu sync.Mutex
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(portScanParallelism)
		for _, number := range ports {
			g.Go(func() error {
				conn, err := client.DialContext(gctx, "tcp", net.JoinHostPort(ip.String(), strconv.Itoa(number)))
				if err != nil {
					// closed, filtered or cancelled
					return nil
				}
				_ = conn.Close() //nolint:errcheck // only the connect matters

				svc := wellKnownPorts[number]
				mu.Lock()
				defer mu.Unlock()
				emit(value.OpenPort{
					Address:  ip.Address,
					Host:     ip.Host,
					Number:   number,
					Protocol: value.ProtocolTCP,
					Service:  svc.name,
					SSL:      svc.ssl,
				})
				return nil
			})
		}
		_ = g.Wait() //nolint:errcheck // probes never fail
		return ctx.Err()
	})
}
