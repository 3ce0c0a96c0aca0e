// Command router is a small reverse proxy for running several backend
// replicas behind one address. It discovers replicas through DNS (Docker
// Swarm network aliases resolve to every container IP), health-checks
// them, and round-robins incoming requests across the healthy ones.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"
	"sync"
	"time"
)

type endpoint struct {
	IP        string    `json:"ip"`
	URL       string    `json:"url"`
	Healthy   bool      `json:"healthy"`
	LastCheck time.Time `json:"lastCheck"`
}

type router struct {
	mu          sync.RWMutex
	endpoints   []*endpoint
	next        int
	serviceName string
	servicePort string
	healthPath  string
	log         *slog.Logger
}

func newRouter(serviceName, servicePort, healthPath string) *router {
	return &router{
		serviceName: serviceName,
		servicePort: servicePort,
		healthPath:  healthPath,
		log:         slog.Default().With("component", "router"),
	}
}

func (r *router) start(ctx context.Context, discoverEvery, checkEvery time.Duration) {
	r.discover()
	go r.loop(ctx, discoverEvery, r.discover)
	go r.loop(ctx, checkEvery, r.checkAll)
}

func (r *router) loop(ctx context.Context, every time.Duration, fn func()) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn()
		}
	}
}

// discover resolves the service name and reconciles the endpoint list with
// the returned IPs.
func (r *router) discover() {
	ips, err := net.LookupIP(r.serviceName)
	if err != nil {
		r.log.Warn("DNS lookup failed", "service", r.serviceName, "error", err)
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[string]bool, len(ips))
	for _, ip := range ips {
		addr := ip.String()
		seen[addr] = true

		known := false
		for _, ep := range r.endpoints {
			if ep.IP == addr {
				known = true
				break
			}
		}
		if !known {
			ep := &endpoint{IP: addr, URL: fmt.Sprintf("http://%s:%s", addr, r.servicePort)}
			r.endpoints = append(r.endpoints, ep)
			r.log.Info("backend discovered", "url", ep.URL)
		}
	}

	kept := r.endpoints[:0]
	for _, ep := range r.endpoints {
		if seen[ep.IP] {
			kept = append(kept, ep)
		} else {
			r.log.Info("backend removed, no longer in DNS", "url", ep.URL)
		}
	}
	r.endpoints = kept
}

func (r *router) checkAll() {
	r.mu.RLock()
	endpoints := make([]*endpoint, len(r.endpoints))
	copy(endpoints, r.endpoints)
	r.mu.RUnlock()

	var wg sync.WaitGroup
	for _, ep := range endpoints {
		wg.Add(1)
		go func(ep *endpoint) {
			defer wg.Done()
			r.check(ep)
		}(ep)
	}
	wg.Wait()
}

func (r *router) check(ep *endpoint) {
	client := &http.Client{Timeout: 3 * time.Second}
	resp, err := client.Get(ep.URL + r.healthPath)

	r.mu.Lock()
	defer r.mu.Unlock()

	was := ep.Healthy
	ep.LastCheck = time.Now()
	if err != nil {
		ep.Healthy = false
	} else {
		resp.Body.Close()
		ep.Healthy = resp.StatusCode == http.StatusOK
	}

	if was != ep.Healthy {
		if ep.Healthy {
			r.log.Info("backend recovered", "url", ep.URL)
		} else {
			r.log.Warn("backend unhealthy", "url", ep.URL, "error", err)
		}
	}
}

// pick returns the next healthy endpoint, round-robin, or nil.
func (r *router) pick() *endpoint {
	r.mu.Lock()
	defer r.mu.Unlock()

	var healthy []*endpoint
	for _, ep := range r.endpoints {
		if ep.Healthy {
			healthy = append(healthy, ep)
		}
	}
	if len(healthy) == 0 {
		return nil
	}

	ep := healthy[r.next%len(healthy)]
	r.next++
	return ep
}

func (r *router) proxy(w http.ResponseWriter, req *http.Request) {
	ep := r.pick()
	if ep == nil {
		http.Error(w, "Service Unavailable - no healthy backends", http.StatusServiceUnavailable)
		return
	}

	target, err := url.Parse(ep.URL)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	httputil.NewSingleHostReverseProxy(target).ServeHTTP(w, req)
}

func (r *router) status(w http.ResponseWriter, _ *http.Request) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	healthy := 0
	for _, ep := range r.endpoints {
		if ep.Healthy {
			healthy++
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"service":   r.serviceName,
		"total":     len(r.endpoints),
		"healthy":   healthy,
		"endpoints": r.endpoints,
	})
}

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, nil)))

	serviceName := getEnv("SERVICE_NAME", "backend")
	servicePort := getEnv("SERVICE_PORT", "3000")
	healthPath := getEnv("HEALTH_PATH", "/health")
	routerPort := getEnv("ROUTER_PORT", "8080")

	r := newRouter(serviceName, servicePort, healthPath)
	r.start(context.Background(), 10*time.Second, 5*time.Second)

	http.HandleFunc("/", r.proxy)
	http.HandleFunc("/router/status", r.status)
	http.HandleFunc("/router/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "OK")
	})

	slog.Info("router listening", "port", routerPort, "service", serviceName)
	if err := http.ListenAndServe(":"+routerPort, nil); err != nil {
		slog.Error("router stopped", "error", err)
		os.Exit(1)
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
