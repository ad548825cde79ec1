package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicbook/booking-engine/internal/config"
	"github.com/clinicbook/booking-engine/internal/db"
)

// The simulator hammers the booking API with racing patients to verify that
// every slot is won by exactly one of them, and reports throughput, conflict
// rates and latency percentiles.

type SimConfig struct {
	APIBaseURL   string
	Duration     time.Duration
	Workers      int
	BookingRatio float64
	DecideRatio  float64
	CancelRatio  float64
	ReadRatio    float64
	PatientLimit int
	SlotLimit    int
	PostgresDSN  string
}

type DataPool struct {
	Patients      []uuid.UUID
	Slots         []uuid.UUID
	SlotProviders map[uuid.UUID]uuid.UUID
	Staff         uuid.UUID

	mu           sync.RWMutex
	appointments []uuid.UUID
}

func (dp *DataPool) AddAppointment(id uuid.UUID) {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	dp.appointments = append(dp.appointments, id)
}

func (dp *DataPool) GetRandomAppointment(rng *rand.Rand) (uuid.UUID, bool) {
	dp.mu.RLock()
	defer dp.mu.RUnlock()
	if len(dp.appointments) == 0 {
		return uuid.Nil, false
	}
	return dp.appointments[rng.Intn(len(dp.appointments))], true
}

type OperationMetrics struct {
	Total     int64
	Success   int64
	Conflict  int64
	Error     int64
	Latencies []time.Duration
	mu        sync.Mutex
}

func (om *OperationMetrics) Record(latency time.Duration, success bool, conflict bool) {
	atomic.AddInt64(&om.Total, 1)
	if success {
		atomic.AddInt64(&om.Success, 1)
	} else if conflict {
		atomic.AddInt64(&om.Conflict, 1)
	} else {
		atomic.AddInt64(&om.Error, 1)
	}

	om.mu.Lock()
	om.Latencies = append(om.Latencies, latency)
	om.mu.Unlock()
}

func (om *OperationMetrics) Stats() (avg, min, max, p50, p95 time.Duration) {
	om.mu.Lock()
	defer om.mu.Unlock()

	if len(om.Latencies) == 0 {
		return 0, 0, 0, 0, 0
	}

	latencies := make([]time.Duration, len(om.Latencies))
	copy(latencies, om.Latencies)

	sort.Slice(latencies, func(i, j int) bool {
		return latencies[i] < latencies[j]
	})

	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}

	avg = sum / time.Duration(len(latencies))
	min = latencies[0]
	max = latencies[len(latencies)-1]

	p50Idx := len(latencies) * 50 / 100
	if p50Idx >= len(latencies) {
		p50Idx = len(latencies) - 1
	}
	p50 = latencies[p50Idx]

	p95Idx := len(latencies) * 95 / 100
	if p95Idx >= len(latencies) {
		p95Idx = len(latencies) - 1
	}
	p95 = latencies[p95Idx]

	return avg, min, max, p50, p95
}

type Metrics struct {
	Booking       OperationMetrics
	Decide        OperationMetrics
	Cancel        OperationMetrics
	ReadByID      OperationMetrics
	ListByPatient OperationMetrics
}

type Simulator struct {
	config  SimConfig
	pool    *DataPool
	client  *http.Client
	metrics Metrics
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("simulator starting")

	cfg := loadConfig()
	if err := validateConfig(cfg); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	log.Printf("config: duration=%s workers=%d booking=%.2f decide=%.2f cancel=%.2f read=%.2f",
		cfg.Duration, cfg.Workers, cfg.BookingRatio, cfg.DecideRatio, cfg.CancelRatio, cfg.ReadRatio)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pgPool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pgPool.Close()

	dataPool, err := loadDataPool(ctx, pgPool, cfg)
	if err != nil {
		log.Fatalf("load data pool: %v", err)
	}

	log.Printf("loaded: %d patients, %d free slots", len(dataPool.Patients), len(dataPool.Slots))

	sim := &Simulator{
		config: cfg,
		pool:   dataPool,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	sim.Run()
	sim.PrintReport()
}

func loadConfig() SimConfig {
	baseCfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load base config: %v", err)
	}

	cfg := SimConfig{
		APIBaseURL:   getEnv("SIM_API_BASE_URL", "http://localhost:8080"),
		Duration:     getDuration("SIM_DURATION", 30*time.Second),
		Workers:      getInt("SIM_WORKERS", 10),
		BookingRatio: getFloat("SIM_BOOKING_RATIO", 0.4),
		DecideRatio:  getFloat("SIM_DECIDE_RATIO", 0.2),
		CancelRatio:  getFloat("SIM_CANCEL_RATIO", 0.1),
		ReadRatio:    getFloat("SIM_READ_RATIO", 0.3),
		PatientLimit: getInt("SIM_PATIENT_LIMIT", 2000),
		SlotLimit:    getInt("SIM_SLOT_LIMIT", 1200),
		PostgresDSN:  baseCfg.PostgresDSN,
	}

	total := cfg.BookingRatio + cfg.DecideRatio + cfg.CancelRatio + cfg.ReadRatio
	if total > 0 {
		cfg.BookingRatio /= total
		cfg.DecideRatio /= total
		cfg.CancelRatio /= total
		cfg.ReadRatio /= total
	}

	return cfg
}

func validateConfig(cfg SimConfig) error {
	if cfg.PostgresDSN == "" {
		return fmt.Errorf("POSTGRES_DSN is required (set in .env or environment)")
	}
	if cfg.Workers <= 0 {
		return fmt.Errorf("SIM_WORKERS must be > 0")
	}
	if cfg.Duration <= 0 {
		return fmt.Errorf("SIM_DURATION must be > 0")
	}
	return nil
}

func loadDataPool(ctx context.Context, pool *pgxpool.Pool, cfg SimConfig) (*DataPool, error) {
	dataPool := &DataPool{
		SlotProviders: make(map[uuid.UUID]uuid.UUID),
		Staff:         uuid.New(),
	}

	rows, err := pool.Query(ctx, `
		SELECT id FROM patients LIMIT $1
	`, cfg.PatientLimit)
	if err != nil {
		return nil, fmt.Errorf("load patients: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		dataPool.Patients = append(dataPool.Patients, id)
	}

	rows, err = pool.Query(ctx, `
		SELECT id, provider_id FROM slots
		WHERE status = 'free' AND start_time > now()
		LIMIT $1
	`, cfg.SlotLimit)
	if err != nil {
		return nil, fmt.Errorf("load slots: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id, providerID uuid.UUID
		if err := rows.Scan(&id, &providerID); err != nil {
			return nil, err
		}
		dataPool.Slots = append(dataPool.Slots, id)
		dataPool.SlotProviders[id] = providerID
	}

	if len(dataPool.Patients) == 0 {
		return nil, fmt.Errorf("no patients loaded")
	}
	if len(dataPool.Slots) == 0 {
		return nil, fmt.Errorf("no free slots loaded")
	}

	return dataPool, nil
}

func (s *Simulator) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.Duration)
	defer cancel()

	log.Printf("starting simulation for %s with %d workers", s.config.Duration, s.config.Workers)

	var wg sync.WaitGroup
	for i := 0; i < s.config.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			s.worker(ctx, workerID)
		}(i)
	}

	wg.Wait()
	log.Println("simulation complete")
}

func (s *Simulator) worker(ctx context.Context, workerID int) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(workerID)))

	for {
		select {
		case <-ctx.Done():
			return
		default:
			r := rng.Float64()
			switch {
			case r < s.config.BookingRatio:
				s.doBooking(ctx, rng)
			case r < s.config.BookingRatio+s.config.DecideRatio:
				s.doDecide(ctx, rng)
			case r < s.config.BookingRatio+s.config.DecideRatio+s.config.CancelRatio:
				s.doCancel(ctx, rng)
			default:
				if rng.Intn(2) == 0 {
					s.doReadByID(ctx, rng)
				} else {
					s.doListByPatient(ctx, rng)
				}
			}
		}
	}
}

// doBooking deliberately draws from a small slot pool so that many workers
// race for the same slot; the API must return 201 to exactly one of them.
func (s *Simulator) doBooking(ctx context.Context, rng *rand.Rand) {
	slotID := s.pool.Slots[rng.Intn(len(s.pool.Slots))]
	patientID := s.pool.Patients[rng.Intn(len(s.pool.Patients))]
	providerID := s.pool.SlotProviders[slotID]

	start := time.Now()

	reqBody := map[string]string{
		"slot_id":     slotID.String(),
		"patient_id":  patientID.String(),
		"provider_id": providerID.String(),
	}
	body, _ := json.Marshal(reqBody)

	req, _ := http.NewRequestWithContext(ctx, "POST", s.config.APIBaseURL+"/appointments", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	s.asPatient(req, patientID)

	resp, err := s.client.Do(req)
	latency := time.Since(start)

	success := false
	conflict := false

	if err == nil {
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusCreated {
			success = true
			var apptResp struct {
				ID uuid.UUID `json:"id"`
			}
			bodyBytes, _ := io.ReadAll(resp.Body)
			if len(bodyBytes) > 0 {
				_ = json.Unmarshal(bodyBytes, &apptResp)
				if apptResp.ID != uuid.Nil {
					s.pool.AddAppointment(apptResp.ID)
				}
			}
		} else if resp.StatusCode == http.StatusConflict {
			conflict = true
		}
	}

	s.metrics.Booking.Record(latency, success, conflict)
}

func (s *Simulator) doDecide(ctx context.Context, rng *rand.Rand) {
	apptID, ok := s.pool.GetRandomAppointment(rng)
	if !ok {
		return
	}

	decision := "confirm"
	if rng.Float64() < 0.2 {
		decision = "decline"
	}
	body, _ := json.Marshal(map[string]string{"decision": decision})

	start := time.Now()

	req, _ := http.NewRequestWithContext(ctx, "POST",
		fmt.Sprintf("%s/appointments/%s/decision", s.config.APIBaseURL, apptID.String()), bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	s.asStaff(req)

	resp, err := s.client.Do(req)
	latency := time.Since(start)

	success := false
	conflict := false

	if err == nil {
		defer resp.Body.Close()
		if resp.StatusCode == http.StatusOK {
			success = true
		} else if resp.StatusCode == http.StatusConflict {
			conflict = true
		}
	}

	s.metrics.Decide.Record(latency, success, conflict)
}

func (s *Simulator) doCancel(ctx context.Context, rng *rand.Rand) {
	apptID, ok := s.pool.GetRandomAppointment(rng)
	if !ok {
		return
	}

	body, _ := json.Marshal(map[string]string{"reason": "simulation"})

	start := time.Now()

	req, _ := http.NewRequestWithContext(ctx, "POST",
		fmt.Sprintf("%s/appointments/%s/cancel", s.config.APIBaseURL, apptID.String()), bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	s.asStaff(req)

	resp, err := s.client.Do(req)
	latency := time.Since(start)

	success := false
	conflict := false

	if err == nil {
		defer resp.Body.Close()
		if resp.StatusCode == http.StatusOK {
			success = true
		} else if resp.StatusCode == http.StatusConflict {
			conflict = true
		}
	}

	s.metrics.Cancel.Record(latency, success, conflict)
}

func (s *Simulator) doReadByID(ctx context.Context, rng *rand.Rand) {
	apptID, ok := s.pool.GetRandomAppointment(rng)
	if !ok {
		return
	}

	start := time.Now()

	req, _ := http.NewRequestWithContext(ctx, "GET",
		fmt.Sprintf("%s/appointments/%s", s.config.APIBaseURL, apptID.String()), nil)
	s.asStaff(req)

	resp, err := s.client.Do(req)
	latency := time.Since(start)

	success := false
	if err == nil {
		defer resp.Body.Close()
		success = resp.StatusCode == http.StatusOK
	}

	s.metrics.ReadByID.Record(latency, success, false)
}

func (s *Simulator) doListByPatient(ctx context.Context, rng *rand.Rand) {
	patientID := s.pool.Patients[rng.Intn(len(s.pool.Patients))]

	start := time.Now()

	req, _ := http.NewRequestWithContext(ctx, "GET",
		fmt.Sprintf("%s/appointments?patient_id=%s&limit=20", s.config.APIBaseURL, patientID.String()), nil)
	s.asPatient(req, patientID)

	resp, err := s.client.Do(req)
	latency := time.Since(start)

	success := false
	if err == nil {
		defer resp.Body.Close()
		success = resp.StatusCode == http.StatusOK
	}

	s.metrics.ListByPatient.Record(latency, success, false)
}

func (s *Simulator) asPatient(req *http.Request, patientID uuid.UUID) {
	req.Header.Set("X-Actor-Id", patientID.String())
	req.Header.Set("X-Actor-Role", "patient")
}

func (s *Simulator) asStaff(req *http.Request) {
	req.Header.Set("X-Actor-Id", s.pool.Staff.String())
	req.Header.Set("X-Actor-Role", "staff")
}

func (s *Simulator) PrintReport() {
	fmt.Println("\n" + strings.Repeat("=", 80))
	fmt.Println("SIMULATION REPORT")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Duration: %s\n", s.config.Duration)
	fmt.Printf("Workers: %d\n", s.config.Workers)
	fmt.Println()

	printOperationReport("Booking", &s.metrics.Booking)
	printOperationReport("Decide", &s.metrics.Decide)
	printOperationReport("Cancel", &s.metrics.Cancel)
	printOperationReport("Read by ID", &s.metrics.ReadByID)
	printOperationReport("List by Patient", &s.metrics.ListByPatient)
}

func printOperationReport(name string, om *OperationMetrics) {
	total := atomic.LoadInt64(&om.Total)
	if total == 0 {
		return
	}

	success := atomic.LoadInt64(&om.Success)
	conflict := atomic.LoadInt64(&om.Conflict)
	errCount := atomic.LoadInt64(&om.Error)

	avg, min, max, p50, p95 := om.Stats()

	fmt.Printf("%s:\n", name)
	fmt.Printf("  Total: %d\n", total)
	fmt.Printf("  Success: %d (%.1f%%)\n", success, float64(success)/float64(total)*100)
	if conflict > 0 {
		fmt.Printf("  Conflicts: %d (%.1f%%)\n", conflict, float64(conflict)/float64(total)*100)
	}
	if errCount > 0 {
		fmt.Printf("  Errors: %d (%.1f%%)\n", errCount, float64(errCount)/float64(total)*100)
	}
	fmt.Printf("  Latency: avg=%s min=%s max=%s p50=%s p95=%s\n",
		avg.Round(time.Millisecond), min.Round(time.Millisecond), max.Round(time.Millisecond),
		p50.Round(time.Millisecond), p95.Round(time.Millisecond))
	fmt.Println()
}

// Helper functions

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}
