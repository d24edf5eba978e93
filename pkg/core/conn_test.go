package core

import (
	"net"
	"testing"
)

// TestConnMetricsAdd tests summing connection metrics.
func TestConnMetricsAdd(t *testing.T) {
	a := ConnMetrics{BytesRead: 10, BytesWritten: 3}
	b := ConnMetrics{BytesRead: 5, BytesWritten: 7}

	sum := a.Add(b)
	if sum.BytesRead != 15 {
		t.Errorf("Expected BytesRead to be 15, got %d", sum.BytesRead)
	}
	if sum.BytesWritten != 10 {
		t.Errorf("Expected BytesWritten to be 10, got %d", sum.BytesWritten)
	}
	if a.BytesRead != 10 {
		t.Errorf("Add must not modify its receiver, got BytesRead %d", a.BytesRead)
	}
}

type staticConn struct {
	net.Conn
}

func (staticConn) BytesRead() uint64    { return 1 }
func (staticConn) BytesWritten() uint64 { return 2 }

// TestRegistryFunc tests the function adapter for Registry.
func TestRegistryFunc(t *testing.T) {
	var got []CountedConn
	var reg Registry = RegistryFunc(func(c CountedConn) {
		got = append(got, c)
	})

	reg.Register(staticConn{})
	reg.Register(staticConn{})

	if len(got) != 2 {
		t.Fatalf("Expected 2 registrations, got %d", len(got))
	}
	if got[0].BytesWritten() != 2 {
		t.Errorf("Expected registered connection to be passed through, got %d", got[0].BytesWritten())
	}
}
