// Copyright 2023 The go-vesper Authors
// This file is part of the go-vesper library.
//
// The go-vesper library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-vesper library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-vesper library. If not, see <http://www.gnu.org/licenses/>.

package common

import (
	"strings"
	"testing"
)

func TestBytesToHashPadding(t *testing.T) {
	t.Parallel()
	h := BytesToHash([]byte{0x01, 0x02})
	if h[29] != 0 || h[30] != 0x01 || h[31] != 0x02 {
		t.Fatalf("short input not left-padded: %s", h)
	}
	long := make([]byte, 40)
	long[39] = 0xee
	if got := BytesToHash(long); got[31] != 0xee {
		t.Fatalf("long input not cropped from the left: %s", got)
	}
}

func TestHexToHash(t *testing.T) {
	t.Parallel()
	want := BytesToHash([]byte{0xde, 0xad})
	got, err := HexToHash(want.Hex())
	if err != nil {
		t.Fatal(err)
	}
	if got != want {
		t.Fatalf("round trip %s != %s", got, want)
	}
	if _, err := HexToHash("0x1234"); err == nil {
		t.Fatal("short hex accepted")
	}
	if _, err := HexToHash(strings.Repeat("zz", 32)); err == nil {
		t.Fatal("non-hex accepted")
	}
}

func TestHashZero(t *testing.T) {
	t.Parallel()
	var h Hash
	if !h.IsZero() {
		t.Fatal("zero value not zero")
	}
	h[0] = 1
	if h.IsZero() {
		t.Fatal("non-zero value reported zero")
	}
}
