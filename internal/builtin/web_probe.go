package builtin

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/nao1215/reconscan/internal/crawler"
	"github.com/nao1215/reconscan/internal/transport"
	"github.com/nao1215/reconscan/internal/value"
	"github.com/nao1215/reconscan/internal/worker"
)

// WebProbeID is the id of the website probe.
const WebProbeID = "web/probe"

// maxBodySize is how much of a response body is searched.
const maxBodySize = 1 << 20

// NewWebProbe requests the root page of a website and emits it as a URL
// with its status and headers, plus the email addresses found in the body.
func NewWebProbe(client *transport.Client) worker.Worker {
	httpClient := client.HTTPClient()

	return worker.New(worker.Descriptor{
		ID:          WebProbeID,
		Summary:     "Requests the root page of a website",
		Description: "Sends GET / to the website, emits the response as a URL with status and headers, and emits the email addresses found in the body.",
		Accepts:     []value.Kind{value.KindWebsite},
		Outputs:     []value.Kind{value.KindURL, value.KindEmailAddress},
		Intensity:   worker.Active,
	}, func(ctx context.Context, v value.Value, emit worker.Emit) error {
		site, ok := v.(value.Website)
		if !ok {
			return nil
		}

		u := site.URL()
		u.Path = "/"
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
		if err != nil {
			return err
		}
		resp, err := httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("GET %s: %w", u, err)
		}
		defer resp.Body.Close()

		emit(value.URL{
			URI:     u.String(),
			Status:  resp.StatusCode,
			Headers: resp.Header.Clone(),
		})

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
		if err != nil {
			return fmt.Errorf("read %s: %w", u, err)
		}
		for _, addr := range crawler.ExtractEmails(string(body)) {
			emit(value.NewEmailAddress(addr))
		}
		return nil
	})
}
