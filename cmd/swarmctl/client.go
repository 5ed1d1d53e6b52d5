package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"swarmd/pkg/types"
)

// client is a thin wrapper over the swarmd HTTP API that pretty-prints
// responses to stdout.
type client struct {
	addr string
}

func (c *client) httpClient() *http.Client {
	return &http.Client{Timeout: 30 * time.Second}
}

func (c *client) url(path string) string {
	return strings.TrimRight(c.addr, "/") + path
}

func (c *client) getJSON(path string) error {
	resp, err := c.httpClient().Get(c.url(path))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return printResponse(resp)
}

func (c *client) post(path string) error {
	resp, err := c.httpClient().Post(c.url(path), "application/json", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return printResponse(resp)
}

func printResponse(resp *http.Response) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		var apiErr types.ErrorResponse
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s (HTTP %d)", apiErr.Error, resp.StatusCode)
		}
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, body, "", "  "); err != nil {
		// Not JSON; print as-is.
		fmt.Println(strings.TrimSpace(string(body)))
		return nil
	}
	_, err = pretty.WriteTo(os.Stdout)
	fmt.Println()
	return err
}
