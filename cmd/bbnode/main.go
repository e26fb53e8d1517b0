// Copyright (C) 2022 Sneller, Inc.
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

// Command bbnode runs one party's bulletin-board HTTP server and
// UDP hint listener (§4.13). It is a thin composition root: all
// protocol behavior lives in the bboard package, config loads the
// party's tunables and network topology, and this package only
// parses flags and wires the pieces together.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/vericore/bbcore/bboard"
	"github.com/vericore/bbcore/config"
	"github.com/vericore/bbcore/debug"
	"github.com/vericore/bbcore/hint"
	"github.com/vericore/bbcore/prompt"
	"github.com/vericore/bbcore/tempfile"
	"github.com/vericore/bbcore/transport"
)

var (
	networkPath string
	configPath  string
	httpBind    string
	hintBind    string
	httpDir     string
	tmpDir      string
	debugSock   string
	interactive bool
	k           int
)

func init() {
	flag.StringVar(&networkPath, "network", "", "path to the YAML network topology file (required)")
	flag.StringVar(&configPath, "config", "", "path to a YAML tunables file (default: built-in defaults)")
	flag.StringVar(&httpBind, "http", "127.0.0.1:8000", "address to bind this party's HTTP server on")
	flag.StringVar(&hintBind, "hint", "", "address to bind this party's UDP hint listener on (empty disables hints)")
	flag.StringVar(&httpDir, "dir", "", "this party's serving root (default: a subdirectory of -tmp)")
	flag.StringVar(&tmpDir, "tmp", os.TempDir(), "root directory for temp files and, if -dir is unset, the serving root")
	flag.StringVar(&debugSock, "debugsock", "", "unix socket path for a pprof endpoint restricted to this uid (empty disables it)")
	flag.BoolVar(&interactive, "i", false, "retry a stalled wait (answering yes without prompting) instead of failing immediately")
	flag.IntVar(&k, "k", 0, "number of parties (default: inferred from the network file)")
}

func logf(f string, args ...any) {
	if len(f) == 0 || f[len(f)-1] != '\n' {
		f += "\n"
	}
	fmt.Fprintf(os.Stderr, f, args...)
}

func exitf(f string, args ...any) {
	logf(f, args...)
	os.Exit(1)
}

func main() {
	flag.Parse()
	if networkPath == "" {
		exitf("missing required -network flag")
	}

	net0, err := config.LoadNetwork(networkPath)
	if err != nil {
		exitf("loading network topology: %s", err)
	}
	own, keys, peerURL, peerUDP, err := net0.Resolve()
	if err != nil {
		exitf("resolving network topology: %s", err)
	}
	if k == 0 {
		k = len(keys)
	}

	cfg := config.Default()
	if configPath != "" {
		cfg, err = config.Load(configPath)
		if err != nil {
			exitf("loading config: %s", err)
		}
	}

	if httpDir == "" {
		httpDir = tmpDir + "/bbnode-self"
	}
	if err := os.MkdirAll(httpDir, 0o755); err != nil {
		exitf("creating serving root %s: %s", httpDir, err)
	}
	td, err := tempfile.Init(tmpDir)
	if err != nil {
		exitf("initializing temp-file directory: %s", err)
	}

	var hints *hint.Service
	if hintBind != "" {
		hints, err = hint.Listen(hintBind, cfg.HintSocketRetries, cfg.HintSocketSleepMs)
		if err != nil {
			exitf("binding hint listener on %s: %s", hintBind, err)
		}
		defer hints.Close()
	}

	if debugSock != "" {
		uid := uint32(os.Getuid())
		debug.Path(debugSock, func(cred *debug.Ucred) bool {
			return cred.Uid == uid
		}, logf)
	}

	asker := prompt.Asker(prompt.Never{})
	if interactive {
		asker = prompt.Always{}
	}

	board := &bboard.Board{
		K:           k,
		Self:        net0.Self,
		Own:         own,
		Keys:        keys,
		PeerURL:     peerURL,
		PeerUDPAddr: peerUDP,
		HTTPDir:     httpDir,
		Hints:       hints,
		TD:          td,
		Cfg:         cfg,
		Prompt:      asker,
		Logf:        logf,
	}
	srv := &transport.Server{
		Root:       httpDir,
		BufferSize: cfg.HTTPBufferSize,
		Logf:       logf,
	}
	mux := http.NewServeMux()
	mux.Handle("/", srv)
	mux.HandleFunc("/debug/stats", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(board.Stats())
	})

	var l net.Listener
	bindErr := transport.BindRetry(func() error {
		var err error
		l, err = net.Listen("tcp", httpBind)
		return err
	}, cfg.HTTPBindRetries, cfg.HTTPBindSleepMs)
	if bindErr != nil {
		exitf("binding HTTP listener on %s: %s", httpBind, bindErr)
	}
	logf("bbnode: party %d serving %s on %s", net0.Self, httpDir, l.Addr())

	go func() {
		if err := http.Serve(l, mux); err != nil {
			logf("bbnode: HTTP server exited: %s", err)
		}
	}()

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c
	logf("bbnode: shutting down")
	l.Close()
}
