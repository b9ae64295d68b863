package integration_tests

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/foundriesio/bmcrsu/internal/events"
	"github.com/foundriesio/bmcrsu/pkg/api"
	cfg "github.com/foundriesio/bmcrsu/pkg/config"
	"github.com/foundriesio/bmcrsu/pkg/poll"
	"github.com/foundriesio/bmcrsu/pkg/regport"
	"github.com/foundriesio/bmcrsu/pkg/rsu"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

const osRelease = `
ID=lmp
VERSION_ID=4.0.20
PRETTY_NAME="Linux-microPlatform 4.0.20"
`

type clock struct {
	now time.Time
}

func (c *clock) Now() time.Time { return c.now }
func (c *clock) Sleep(_ context.Context, d time.Duration) error {
	c.now = c.now.Add(d)
	return nil
}

func createMockConfig(t *testing.T, tempDir string, board string) *cfg.Config {
	t.Helper()
	content := fmt.Sprintf(`
[device]
board = "%s"
transport = "sim"
write_block_size = "0x400"

[storage]
path = "%s"
sqldb_path = "journal.db"

[metrics]
textfile = "%s"

[timeouts]
complete_interval = "1s"
complete_timeout = "2m"
`, board, filepath.Join(tempDir, "storage"), filepath.Join(tempDir, "bmcrsu.prom"))

	cfgDir := filepath.Join(tempDir, "etc")
	if err := os.MkdirAll(cfgDir, 0o755); err != nil {
		t.Fatalf("failed to create config dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(cfgDir, "bmcrsu.toml"), []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	config, err := cfg.NewConfig([]string{cfgDir})
	checkErr(t, err)
	return config
}

type integrationTest struct {
	t       *testing.T
	tempDir string
	config  *cfg.Config
	ctx     context.Context
	clk     *clock
	apiOpts []api.UpdateOpt
}

func newIntegrationTest(t *testing.T, board string) *integrationTest {
	tempDir := t.TempDir()
	osReleasePath := filepath.Join(tempDir, "os-release")
	if err := os.WriteFile(osReleasePath, []byte(osRelease), 0o644); err != nil {
		t.Fatalf("failed to write os-release: %v", err)
	}
	return &integrationTest{
		t:       t,
		tempDir: tempDir,
		config:  createMockConfig(t, tempDir, board),
		ctx:     context.Background(),
		clk:     &clock{now: time.Unix(1_700_000_000, 0)},
		apiOpts: []api.UpdateOpt{api.WithOSRelease(osReleasePath)},
	}
}

func (it *integrationTest) controllerOpts() []rsu.ControllerOpt {
	return []rsu.ControllerOpt{
		rsu.WithLogger(zerolog.Nop()),
		rsu.WithPollOpts(poll.WithClock(it.clk.Now), poll.WithSleeper(it.clk.Sleep)),
	}
}

// controller attaches to the simulated BMC the way the CLI does.
func (it *integrationTest) controller() *rsu.Controller {
	ctrl, err := api.NewController(it.config, it.controllerOpts()...)
	checkErr(it.t, err)
	return ctrl
}

// faultyController attaches to a simulated BMC that misbehaves as described by b.
func (it *integrationTest) faultyController(b regport.SimBehavior) (*rsu.Controller, *regport.Sim) {
	csr := it.config.GetCSRMap()
	sim := regport.NewSimWithBehavior(csr, b)
	var port regport.Port = sim
	if csr.FIFO {
		port = &regport.WordFIFO{Port: sim, WriteWord: sim.WriteFIFOWord}
	}
	opts := append([]rsu.ControllerOpt{rsu.WithTimeouts(it.config.GetTimeouts())}, it.controllerOpts()...)
	return rsu.NewController(port, csr, opts...), sim
}

func (it *integrationTest) writeImage(size int) string {
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(i*31 + 7)
	}
	path := filepath.Join(it.tempDir, fmt.Sprintf("max10-%d.bin", size))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		it.t.Fatalf("failed to write image: %v", err)
	}
	return path
}

func (it *integrationTest) history() []events.BmcUpdateEvent {
	evts, err := api.History(it.config, "")
	checkErr(it.t, err)
	return evts
}

func (it *integrationTest) clearHistory() {
	if _, err := os.Stat(it.config.GetDBPath()); os.IsNotExist(err) {
		return
	}
	_, maxId, err := events.GetEvents(it.config.GetDBPath(), "")
	checkErr(it.t, err)
	checkErr(it.t, api.PruneHistory(it.config, maxId))
}

// checkLastEvent verifies the most recent journaled event.
func (it *integrationTest) checkLastEvent(id events.EventTypeValue, success bool, code rsu.Code) events.BmcEvent {
	it.t.Helper()
	evts := it.history()
	if len(evts) == 0 {
		it.t.Fatalf("no events recorded")
	}
	last := evts[len(evts)-1]
	assert.Equal(it.t, id, last.EventType.Id)
	if assert.NotNil(it.t, last.Event.Success) {
		assert.Equal(it.t, success, *last.Event.Success)
	}
	assert.Equal(it.t, string(code), last.Event.Code)
	assert.Equal(it.t, string(it.config.GetBoard()), last.Event.Board)
	return last.Event
}

func checkErr(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func expectErr(t *testing.T, err error, kind error) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error %v, got nil", kind)
	}
	assert.ErrorIs(t, err, kind)
}
