package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

const requestTimeout = 30 * time.Second

func newClient() *http.Client {
	return &http.Client{Timeout: requestTimeout}
}

func newGetCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "get URL",
		Short: "Send a GET request and print the response",
		Example: `  thumbctl get http://localhost:8080/api/pipeline/CgYaBAgKEBQ
  thumbctl get -o cat.jpg http://localhost:8080/image/CgYaBAgKEBQ/original/cat.jpg`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := parseURL(args[0])
			if err != nil {
				return err
			}

			req, err := http.NewRequestWithContext(cmd.Context(), http.MethodGet, u.String(), nil)
			if err != nil {
				return err
			}
			return send(cmd, req, output)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "write the response body to a file")

	return cmd
}

func newPostCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "post URL [KEY=VALUE...]",
		Short:   "Send the key/value pairs as a JSON object and print the response",
		Example: `  thumbctl post http://localhost:8080/api/render token=CgYaBAgKEBQ source=original/cat.jpg`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := parseURL(args[0])
			if err != nil {
				return err
			}

			body, err := parseKVPairs(args[1:])
			if err != nil {
				return err
			}
			data, err := json.Marshal(body)
			if err != nil {
				return fmt.Errorf("encode body: %w", err)
			}

			req, err := http.NewRequestWithContext(cmd.Context(), http.MethodPost, u.String(), bytes.NewReader(data))
			if err != nil {
				return err
			}
			req.Header.Set("Content-Type", "application/json")
			return send(cmd, req, "")
		},
	}

	return cmd
}

func send(cmd *cobra.Command, req *http.Request, output string) error {
	logger := loggerFromContext(cmd.Context())
	logger.Debug("sending request", "method", req.Method, "url", req.URL.String())

	start := time.Now()
	resp, err := newClient().Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL, err)
	}
	defer resp.Body.Close()

	logger.Debug("received response", "status", resp.StatusCode, "elapsed", time.Since(start).Round(time.Millisecond))

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}

	if output != "" {
		if err := os.WriteFile(output, body, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", output, err)
		}
		logger.Info("saved response body", "path", output, "bytes", len(body))
		body = nil
	}

	printResponse(cmd.OutOrStdout(), resp, body)
	return nil
}

// KVPair is one KEY=VALUE argument of the post command.
type KVPair struct {
	Key   string
	Value string
}

// parseKVPair splits s at the first '='. The key must not be empty.
func parseKVPair(s string) (KVPair, error) {
	k, v, ok := strings.Cut(s, "=")
	if !ok || k == "" {
		return KVPair{}, fmt.Errorf("failed to parse %q: expected KEY=VALUE", s)
	}
	return KVPair{Key: k, Value: v}, nil
}

// parseKVPairs builds a JSON object from KEY=VALUE arguments. A repeated key
// keeps its last value.
func parseKVPairs(args []string) (map[string]string, error) {
	body := make(map[string]string, len(args))
	for _, a := range args {
		kv, err := parseKVPair(a)
		if err != nil {
			return nil, err
		}
		body[kv.Key] = kv.Value
	}
	return body, nil
}

// printResponse writes the status line, the headers sorted by name and the body.
// JSON bodies are indented; binary bodies are summarized instead of dumped.
func printResponse(w io.Writer, resp *http.Response, body []byte) {
	status := styleStatus
	if resp.StatusCode >= http.StatusBadRequest {
		status = styleStatusError
	}
	fmt.Fprintf(w, "%s\n\n", status.Render(fmt.Sprintf("%s %s", resp.Proto, resp.Status)))

	names := make([]string, 0, len(resp.Header))
	for name := range resp.Header {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		for _, v := range resp.Header.Values(name) {
			fmt.Fprintf(w, "%s: %s\n", styleHeaderName.Render(name), v)
		}
	}
	fmt.Fprintln(w)

	if len(body) == 0 {
		return
	}
	fmt.Fprintln(w, formatBody(resp.Header.Get("Content-Type"), body))
}

func formatBody(contentType string, body []byte) string {
	mediaType, _, _ := mime.ParseMediaType(contentType)

	switch {
	case mediaType == "application/json" || strings.HasSuffix(mediaType, "+json"):
		var buf bytes.Buffer
		if err := json.Indent(&buf, body, "", "  "); err != nil {
			return string(body)
		}
		lines := strings.Split(buf.String(), "\n")
		for i, l := range lines {
			lines[i] = styleJSON.Render(l)
		}
		return strings.Join(lines, "\n")
	case strings.HasPrefix(mediaType, "text/"), mediaType == "":
		return string(body)
	default:
		return styleIndex.Render(fmt.Sprintf("<%d bytes of %s>", len(body), mediaType))
	}
}
