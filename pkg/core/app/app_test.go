// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package app

import "testing"

func TestSplitBackendURL(t *testing.T) {
	cases := []struct {
		addr     string
		wantHost string
		wantPort int
		wantErr  bool
	}{
		{addr: "localhost:6334", wantHost: "localhost", wantPort: 6334},
		{addr: "qdrant.internal:6334", wantHost: "qdrant.internal", wantPort: 6334},
		{addr: "127.0.0.1:6334", wantHost: "127.0.0.1", wantPort: 6334},
		{addr: "no-port", wantErr: true},
		{addr: "localhost:not-a-port", wantErr: true},
		{addr: "", wantErr: true},
	}

	for _, c := range cases {
		host, port, err := splitBackendURL(c.addr)
		if c.wantErr {
			if err == nil {
				t.Errorf("splitBackendURL(%q): expected error, got host=%q port=%d", c.addr, host, port)
			}
			continue
		}
		if err != nil {
			t.Errorf("splitBackendURL(%q): unexpected error: %v", c.addr, err)
			continue
		}
		if host != c.wantHost || port != c.wantPort {
			t.Errorf("splitBackendURL(%q) = (%q, %d), want (%q, %d)", c.addr, host, port, c.wantHost, c.wantPort)
		}
	}
}
