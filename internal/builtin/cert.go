package builtin

import (
	"context"
	"errors"
	"net"
	"strconv"

	"github.com/nao1215/reconscan/internal/transport"
	"github.com/nao1215/reconscan/internal/value"
	"github.com/nao1215/reconscan/internal/worker"
)

// Worker ids of the certificate workers.
const (
	CertGrabID = "ssl/cert_grab"
	CertEnumID = "ssl/cert_enum"
)

// NewCertGrab fetches the peer certificate of TLS ports. Certificates are
// not verified. A failed handshake ends the invocation without error.
func NewCertGrab(client *transport.Client) worker.Worker {
	return worker.New(worker.Descriptor{
		ID:          CertGrabID,
		Summary:     "Fetches the SSL/TLS certificate from an open port",
		Description: "Grabs and decodes the X509 peer certificate from an open port which supports SSL/TLS.",
		Accepts:     []value.Kind{value.KindOpenPort},
		Outputs:     []value.Kind{value.KindCert},
		Intensity:   worker.Active,
	}, func(ctx context.Context, v value.Value, emit worker.Emit) error {
		port, ok := v.(value.OpenPort)
		if !ok || !port.SSL || port.Protocol == value.ProtocolUDP {
			return nil
		}

		address := net.JoinHostPort(port.Target(), strconv.Itoa(port.Number))
		conn, err := client.DialTLS(ctx, address, port.Host)
		if err != nil {
			if errors.Is(err, transport.ErrTLSHandshake) {
				return nil
			}
			return err
		}
		defer conn.Close()

		certs := conn.ConnectionState().PeerCertificates
		if len(certs) > 0 {
			emit(value.NewCertFromX509(certs[0]))
		}
		return nil
	})
}

// NewCertEnum extracts host names and email addresses from certificates.
func NewCertEnum() worker.Worker {
	return worker.New(worker.Descriptor{
		ID:          CertEnumID,
		Summary:     "Extracts host names and email addresses from a certificate",
		Description: "Emits the subject alternative DNS names and common name as hosts, with wildcard prefixes removed, and the email addresses the certificate lists.",
		Accepts:     []value.Kind{value.KindCert},
		Outputs:     []value.Kind{value.KindHost, value.KindEmailAddress},
		Intensity:   worker.Passive,
	}, func(_ context.Context, v value.Value, emit worker.Emit) error {
		cert, ok := v.(value.Cert)
		if !ok {
			return nil
		}
		for _, name := range cert.Names() {
			emit(value.NewHost(name))
		}
		for _, addr := range cert.EmailAddresses() {
			emit(value.NewEmailAddress(addr))
		}
		return nil
	})
}
