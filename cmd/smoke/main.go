package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"smart-meal-be/pkg/events"
	pktNats "smart-meal-be/pkg/nats"

	fcolor "github.com/fatih/color"
)

type client struct {
	base string
	http *http.Client
}

func main() {
	base := flag.String("base", "http://localhost:8000", "server base URL")
	images := flag.String("images", "", "comma-separated image files; a generated PNG is used when empty")
	natsURL := flag.String("nats", "", "NATS URL to watch session status events on")
	flag.Parse()

	c := &client{base: strings.TrimRight(*base, "/"), http: &http.Client{Timeout: 2 * time.Minute}}
	ctx := context.Background()

	if *natsURL != "" {
		stop := watchEvents(ctx, *natsURL)
		defer stop()
	}

	fcolor.Cyan("1. Creating session")
	var created struct {
		SessionId string `json:"session_id"`
	}
	must(c.do(http.MethodPost, "/api/sessions", nil, "", &created))
	fmt.Println("   session:", created.SessionId)

	fcolor.Cyan("2. Uploading images")
	body, contentType, err := multipartBody(*images)
	must(err)
	var uploaded map[string]interface{}
	must(c.do(http.MethodPost, "/api/session/"+created.SessionId+"/images", body, contentType, &uploaded))
	fmt.Printf("   status=%v count=%v\n", uploaded["status"], uploaded["count"])

	fcolor.Cyan("3. Analyzing")
	var analyzed struct {
		Status      string                   `json:"status"`
		Ingredients []map[string]interface{} `json:"ingredients"`
		Source      string                   `json:"source"`
	}
	must(c.do(http.MethodPost, "/api/session/"+created.SessionId+"/analyze", nil, "", &analyzed))
	fmt.Printf("   status=%s source=%s ingredients=%d\n", analyzed.Status, analyzed.Source, len(analyzed.Ingredients))
	if analyzed.Source != "live" {
		fcolor.Yellow("   degraded: ingredients came from %s", analyzed.Source)
	}

	fcolor.Cyan("4. Fetching result")
	var result map[string]interface{}
	must(c.do(http.MethodGet, "/api/session/"+created.SessionId+"/result", nil, "", &result))
	pretty, _ := json.MarshalIndent(result, "   ", "  ")
	fmt.Println("  ", string(pretty))

	if *natsURL != "" {
		// give the bus a moment to deliver the final status
		time.Sleep(time.Second)
	}
	fcolor.Green("Smoke test passed")
}

func (c *client) do(method, path string, body io.Reader, contentType string, out interface{}) error {
	req, err := http.NewRequest(method, c.base+path, body)
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("%s %s: %d %s", method, path, resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	return json.Unmarshal(raw, out)
}

func multipartBody(list string) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if list == "" {
		part, err := w.CreateFormFile("files", "smoke.png")
		if err != nil {
			return nil, "", err
		}
		img := image.NewRGBA(image.Rect(0, 0, 8, 8))
		img.Set(0, 0, color.RGBA{R: 200, G: 40, B: 40, A: 255})
		if err := png.Encode(part, img); err != nil {
			return nil, "", err
		}
	}

	for _, path := range strings.Split(list, ",") {
		path = strings.TrimSpace(path)
		if path == "" {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, "", err
		}
		part, err := w.CreateFormFile("files", filepath.Base(path))
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(data); err != nil {
			return nil, "", err
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

func watchEvents(ctx context.Context, url string) func() {
	sub, err := pktNats.NewSubscriber(url)
	if err != nil {
		fcolor.Yellow("NATS unavailable, not watching events: %v", err)
		return func() {}
	}

	stop, err := sub.Subscribe(ctx, pktNats.Subject(events.TypeSessionStatusChanged), "", func(ctx context.Context, event events.Event) error {
		data := event.Payload()
		fcolor.Magenta("   [event] %v -> %v", data["session_id"], data["status"])
		return nil
	})
	if err != nil {
		fcolor.Yellow("NATS subscribe failed: %v", err)
		sub.Close()
		return func() {}
	}
	return func() {
		stop()
		sub.Close()
	}
}

func must(err error) {
	if err != nil {
		fcolor.Red("FAIL: %v", err)
		os.Exit(1)
	}
}
