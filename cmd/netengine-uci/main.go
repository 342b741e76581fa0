// netengine-uci is an adaptor that presents a remote UCI chess engine,
// reached via the network engine core, as a local UCI engine over
// stdin/stdout — so GUIs that only speak to a local process can be
// pointed at a remote or relayed engine transparently.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/seekerror/logw"

	"github.com/vidar808/netengine/pkg/netengine/config"
	"github.com/vidar808/netengine/pkg/netengine/facade"
)

var (
	configPath = flag.String("config", "", "Path to a NETE endpoint descriptor file")
	hash       = flag.Uint("hash", 64, "Hash table size (MB) to request from the remote engine")
	syzygy     = flag.String("syzygy-path", "", "SyzygyPath to request from the remote engine")
	gaviota    = flag.String("gaviota-path", "", "GaviotaTbPath to request from the remote engine")
)

func init() {
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, `usage: netengine-uci -config <path> [options]

netengine-uci bridges a remote UCI engine reached through the network
engine core onto stdin/stdout, for GUIs that only launch local engines.

Options:
`)
		flag.PrintDefaults()
	}
}

func main() {
	flag.Parse()
	ctx := context.Background()

	if *configPath == "" {
		flag.Usage()
		logw.Exitf(ctx, "missing -config")
	}

	raw, err := os.ReadFile(*configPath)
	if err != nil {
		logw.Exitf(ctx, "reading %s: %v", *configPath, err)
	}

	ep, err := config.Parse(string(raw))
	if err != nil {
		logw.Exitf(ctx, "parsing %s: %v", *configPath, err)
	}

	r := &stderrReporter{}
	f := facade.New(ep, r)
	f.Start(ctx)
	defer f.Shutdown()

	f.InitOptions(facade.HostOptions{Hash: *hash, SyzygyPath: *syzygy, GaviotaTbPath: *gaviota})

	in := readStdinLines(ctx)
	done := make(chan struct{})
	go pumpEngineToStdout(ctx, f, done)

	for line := range in {
		f.WriteLine(line)
	}
	<-done
}

// stderrReporter prints failure-reporter messages to stderr, mirroring
// the teacher's logw.Exitf/Errorf posture for unrecoverable state.
type stderrReporter struct{}

func (stderrReporter) ReportError(message string) {
	logw.Errorf(context.Background(), "netengine-uci: %s", message)
}

// readStdinLines reads stdin lines into a chan, mirroring
// pkg/engine/util.go's ReadStdinLines.
func readStdinLines(ctx context.Context) <-chan string {
	ret := make(chan string, 1)
	go func() {
		defer close(ret)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			logw.Debugf(ctx, "<< %v", scanner.Text())
			ret <- scanner.Text()
		}
	}()
	return ret
}

func pumpEngineToStdout(ctx context.Context, f *facade.Facade, done chan<- struct{}) {
	defer close(done)
	for {
		line, ok := f.ReadLine(500 * time.Millisecond)
		if !ok {
			return
		}
		if line == "" {
			continue // timeout tick, no line ready
		}
		f.ObserveDeclaration(line)
		logw.Debugf(ctx, ">> %v", line)
		fmt.Fprintln(os.Stdout, line)
	}
}
