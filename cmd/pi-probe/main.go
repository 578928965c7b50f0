// pi-probe checks connectivity to the wearable sensor unit. It hits
// every status endpoint once and prints what came back, which is the
// quickest way to tell a dead Pi from a dead network.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/visionaid/go-visionaid/pkg/sensors"
)

func main() {
	baseURL := flag.String("pi-url", os.Getenv("PI_BASE_URL"), "sensor unit base URL")
	timeout := flag.Duration("timeout", 5*time.Second, "per-request timeout")
	flag.Parse()

	if *baseURL == "" {
		fmt.Fprintln(os.Stderr, "pi-probe: -pi-url or PI_BASE_URL is required")
		os.Exit(2)
	}

	client := sensors.NewClient(*baseURL)
	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	failures := 0
	probe("fall", &failures, func() (interface{}, error) { return client.Fall(ctx) })
	probe("emergency", &failures, func() (interface{}, error) { return client.Emergency(ctx) })
	probe("assistance", &failures, func() (interface{}, error) { return client.Assistance(ctx) })
	probe("environmental", &failures, func() (interface{}, error) { return client.Environment(ctx) })

	if failures > 0 {
		fmt.Fprintf(os.Stderr, "pi-probe: %d of 4 endpoints failed\n", failures)
		os.Exit(1)
	}
	fmt.Println("all endpoints reachable")
}

func probe(name string, failures *int, fn func() (interface{}, error)) {
	v, err := fn()
	if err != nil {
		*failures++
		fmt.Printf("%-14s FAIL  %v\n", name, err)
		return
	}
	body, _ := json.Marshal(v)
	fmt.Printf("%-14s OK    %s\n", name, body)
}
