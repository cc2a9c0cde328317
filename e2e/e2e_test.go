package e2e

import (
	"context"
	"encoding/xml"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/kilianp07/caribou/app"
	"github.com/kilianp07/caribou/config"
	"github.com/kilianp07/caribou/core/factory"
	"github.com/kilianp07/caribou/core/trace"
)

const (
	influxOrg    = "e2e_org"
	influxBucket = "e2e_bucket"
	influxToken  = "e2e-token"
)

// junitReport is a minimal representation of a JUnit XML report. The E2E
// suite writes such a report so CI systems can display the results.
type junitReport struct {
	XMLName  xml.Name        `xml:"testsuite"`
	Name     string          `xml:"name,attr"`
	Tests    int             `xml:"tests,attr"`
	Failures int             `xml:"failures,attr"`
	Cases    []junitTestCase `xml:"testcase"`
}

type junitTestCase struct {
	Name    string  `xml:"name,attr"`
	Failure *string `xml:"failure,omitempty"`
	Time    float64 `xml:"time,attr"`
}

// writeJUnit writes the provided report to the given path.
func writeJUnit(path string, rep junitReport) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := xml.NewEncoder(f)
	enc.Indent("", "  ")
	return enc.Encode(rep)
}

// startInflux starts an initialised InfluxDB 2.7 container and returns it
// along with the base URL.
func startInflux(ctx context.Context, t *testing.T) (tc.Container, string) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "influxdb:2.7",
		ExposedPorts: []string{"8086/tcp"},
		Env: map[string]string{
			"DOCKER_INFLUXDB_INIT_MODE":        "setup",
			"DOCKER_INFLUXDB_INIT_USERNAME":    "caribou",
			"DOCKER_INFLUXDB_INIT_PASSWORD":    "caribou-password",
			"DOCKER_INFLUXDB_INIT_ORG":         influxOrg,
			"DOCKER_INFLUXDB_INIT_BUCKET":      influxBucket,
			"DOCKER_INFLUXDB_INIT_ADMIN_TOKEN": influxToken,
		},
		WaitingFor: wait.ForHTTP("/health").WithPort("8086/tcp").WithStartupTimeout(60 * time.Second),
	}
	cont, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{ContainerRequest: req, Started: true})
	if err != nil {
		t.Skipf("unable to start influx container: %v", err)
	}
	host, _ := cont.Host(ctx)
	port, _ := cont.MappedPort(ctx, "8086")
	url := fmt.Sprintf("http://%s:%s", host, port.Port())
	return cont, url
}

// Test_E2E_CoordinatorRun runs the whole service on a synthetic market
// with the InfluxDB sink and a SQLite trace, then checks both hold one
// entry per iteration.
func Test_E2E_CoordinatorRun(t *testing.T) {
	if testing.Short() {
		t.Skip("e2e test skipped in short mode")
	}
	if _, err := exec.LookPath("docker"); err != nil {
		t.Skipf("docker not installed: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	influxCont, influxURL := startInflux(ctx, t)
	if influxCont != nil {
		defer influxCont.Terminate(ctx) //nolint:errcheck
	}
	t.Logf("InfluxDB started at %s", influxURL)

	cli := NewInfluxClient(influxURL, influxOrg, influxBucket, influxToken)
	defer cli.Close()
	if err := cli.SetupBucket(ctx); err != nil {
		t.Fatalf("setup bucket: %v", err)
	}

	dir := t.TempDir()
	cfg := config.Default()
	cfg.Optimization.MaxIterations = 6
	cfg.Optimization.Tolerance = 0
	cfg.Optimization.StableCoupling = true
	cfg.Metrics.Sinks = []factory.ModuleConfig{{Type: "influx", Conf: map[string]any{
		"url": influxURL, "token": influxToken, "org": influxOrg, "bucket": influxBucket,
	}}}
	cfg.Trace = trace.Config{Backend: "sqlite", Path: filepath.Join(dir, "trace.db")}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("config: %v", err)
	}

	start := time.Now()
	svc, err := app.New(ctx, cfg)
	if err != nil {
		t.Fatalf("service: %v", err)
	}
	res, err := svc.Run(ctx)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if err := svc.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if res.Iterations != 6 {
		t.Fatalf("expected 6 iterations, got %d", res.Iterations)
	}

	store, err := trace.NewSQLiteStore(cfg.Trace.Path)
	if err != nil {
		t.Fatalf("reopen trace: %v", err)
	}
	defer store.Close()
	recs, err := store.Query(ctx, trace.Query{RunID: res.RunID})
	if err != nil {
		t.Fatalf("query trace: %v", err)
	}
	if len(recs) != 6 {
		t.Fatalf("expected 6 trace records, got %d", len(recs))
	}

	n, err := cli.CountRows(ctx, "coordinator_iteration", "residual", res.RunID)
	if err != nil {
		t.Fatalf("query influx: %v", err)
	}
	if n != 6 {
		t.Fatalf("expected 6 residual points, got %d", n)
	}

	dirOut := t.TempDir()
	rep := junitReport{Name: "e2e", Tests: 1, Cases: []junitTestCase{{Name: "Test_E2E_CoordinatorRun", Time: time.Since(start).Seconds()}}}
	if err := writeJUnit(filepath.Join(dirOut, "e2e.xml"), rep); err != nil {
		t.Logf("write junit: %v", err)
	}
}
