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

//go:build linux

// Package debug provides remote debugging tools: a pprof handler
// bound to an inherited file descriptor, for processes started
// under a supervisor that passes down an already-open listening
// socket rather than a port number.
package debug

import (
	"errors"
	"net"
	"net/http"
	_ "net/http/pprof"
	"os"
	"syscall"
)

var (
	ErrNotUnixConn  = errors.New("debug: peer credential check requires a unix socket")
	ErrConnConsumed = errors.New("debug: connection already consumed")
)

// Fd binds the default pprof mux to the provided file descriptor
// and serves it asynchronously. logf, if non-nil, receives
// diagnostic messages, matching every other long-lived component
// in this module rather than requiring a stdlib *log.Logger.
func Fd(fd int, logf func(string, ...any)) {
	f := os.NewFile(uintptr(fd), "debug_sock")
	l, err := net.FileListener(f)
	f.Close()
	if err != nil {
		if logf != nil {
			logf("debug: unable to bind fd=%d: %s", fd, err)
		}
		return
	}
	if logf != nil {
		logf("debug: binding pprof handlers to fd=%d", fd)
	}
	go func() {
		defer l.Close()
		err := http.Serve(l, nil)
		if logf != nil {
			logf("debug: pprof listener on fd=%d exited: %s", fd, err)
		}
	}()
}

// Path binds the default pprof mux to a freshly-created unix
// socket at the given path and serves it asynchronously,
// accepting a connection only if ok reports true for its peer
// credentials. Unlike Fd, which trusts whatever a supervisor
// has already bound, Path is for a socket this process creates
// itself and must gate on its own.
func Path(path string, ok func(*Ucred) bool, logf func(string, ...any)) {
	l, err := net.Listen("unix", path)
	if err != nil {
		if logf != nil {
			logf("debug: unable to bind %s: %s", path, err)
		}
		return
	}
	if logf != nil {
		logf("debug: binding pprof handlers to %s", path)
	}
	go func() {
		defer l.Close()
		for {
			conn, err := l.Accept()
			if err != nil {
				if logf != nil {
					logf("debug: pprof listener on %s exited: %s", path, err)
				}
				return
			}
			uc, err := peerCred(conn)
			if err != nil || !ok(uc) {
				if logf != nil {
					logf("debug: rejecting pprof connection on %s: %v", path, err)
				}
				conn.Close()
				continue
			}
			go http.Serve(&singleConnListener{conn: conn}, nil)
		}
	}()
}

func peerCred(conn net.Conn) (*Ucred, error) {
	uc, ok := conn.(*net.UnixConn)
	if !ok {
		return nil, ErrNotUnixConn
	}
	raw, err := uc.SyscallConn()
	if err != nil {
		return nil, err
	}
	var cred *Ucred
	var credErr error
	err = raw.Control(func(fd uintptr) {
		cred, credErr = syscall.GetsockoptUcred(int(fd), syscall.SOL_SOCKET, syscall.SO_PEERCRED)
	})
	if err != nil {
		return nil, err
	}
	return cred, credErr
}

// singleConnListener adapts one already-accepted net.Conn into a
// net.Listener so http.Serve can drive its request loop, since
// the credential check above has to Accept before it can decide
// whether to serve the connection at all.
type singleConnListener struct {
	conn net.Conn
}

func (s *singleConnListener) Accept() (net.Conn, error) {
	if s.conn == nil {
		return nil, ErrConnConsumed
	}
	c := s.conn
	s.conn = nil
	return c, nil
}

func (s *singleConnListener) Close() error   { return nil }
func (s *singleConnListener) Addr() net.Addr { return nil }
