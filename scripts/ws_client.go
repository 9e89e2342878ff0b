// Package main runs a demo WebSocket client for run events: it submits a
// small async optimization, then streams its progress frames.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/gorilla/websocket"
)

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	base := fmt.Sprintf("http://localhost:%s", port)

	// Submit a small async problem: 6 stops, 2 vehicles, zero distances
	n := 6
	demand := make([]map[string]any, n)
	lookup := map[string]int{}
	matrix := make([][]float64, n)
	first := make([]int, n)
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("stop-%d", i)
		demand[i] = map[string]any{"externalId": id, "latitude": 40.0, "longitude": -75.0, "weight": 15000.0, "pallets": 8}
		lookup[id] = i
		matrix[i] = make([]float64, n)
		first[i] = i % 2
	}
	body, _ := json.Marshal(map[string]any{
		"tenantId":        "t_demo",
		"async":           true,
		"demand":          demand,
		"distanceMatrix":  matrix,
		"lookup":          lookup,
		"firstIndividual": first,
		"vehicleCount":    2,
		"generations":     200,
		"populationSize":  40,
	})
	req, _ := http.NewRequest(http.MethodPost, base+"/v1/optimize", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Tenant-Id", "t_demo")
	req.Header.Set("X-Role", "admin")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = resp.Body.Close() }()
	var acc struct {
		RunID string `json:"runId"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&acc); err != nil {
		log.Fatal(err)
	}
	if acc.RunID == "" {
		log.Fatal("no runId returned")
	}
	log.Printf("Run ID: %s", acc.RunID)

	// Connect WS and stream until the run finishes
	u := url.URL{Scheme: "ws", Host: "localhost:" + port, Path: "/v1/ws", RawQuery: "runId=" + acc.RunID}
	hdr := http.Header{}
	hdr.Set("X-Tenant-Id", "t_demo")
	hdr.Set("X-Role", "admin")
	c, _, err := websocket.DefaultDialer.Dial(u.String(), hdr)
	if err != nil {
		log.Fatal("dial:", err)
	}
	defer func() { _ = c.Close() }()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var evt struct {
				Type string         `json:"type"`
				Data map[string]any `json:"data"`
			}
			if err := c.ReadJSON(&evt); err != nil {
				log.Printf("read: %v", err)
				return
			}
			log.Printf("WS <- %s: %v", evt.Type, evt.Data)
			if evt.Type == "run.completed" || evt.Type == "run.failed" {
				return
			}
		}
	}()

	select {
	case <-done:
	case <-time.After(30 * time.Second):
		log.Print("timed out waiting for run to finish")
	}
}
