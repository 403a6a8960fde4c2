package presence

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type fakeConn struct {
	mu     sync.Mutex
	events []interface{}
}

func (f *fakeConn) Send(event interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return nil
}

type RegistrySuite struct {
	suite.Suite
	reg *Registry
}

func TestRegistrySuite(t *testing.T) {
	suite.Run(t, new(RegistrySuite))
}

func (s *RegistrySuite) SetupTest() {
	s.reg = NewRegistry()
}

func (s *RegistrySuite) TestConnectAndLookup() {
	conn := &fakeConn{}
	s.reg.Connect("driver-1", "driver", "h1", conn)

	entry, ok := s.reg.Lookup("driver-1")
	s.Require().True(ok)
	s.Equal("driver-1", entry.UserID)
	s.Equal("driver", entry.Role)
	s.Equal("h1", entry.Handle)
}

func (s *RegistrySuite) TestReconnectEvictsPriorEntry() {
	s.reg.Connect("driver-1", "driver", "h1", &fakeConn{})
	s.reg.Connect("driver-1", "driver", "h2", &fakeConn{})

	entry, ok := s.reg.Lookup("driver-1")
	s.Require().True(ok)
	s.Equal("h2", entry.Handle)

	// disconnect of the stale handle must not remove the new entry
	s.reg.Disconnect("h1")
	_, ok = s.reg.Lookup("driver-1")
	s.True(ok)
}

func (s *RegistrySuite) TestDisconnectIsIdempotent() {
	s.reg.Connect("client-1", "client", "h1", &fakeConn{})

	s.reg.Disconnect("h1")
	s.reg.Disconnect("h1")
	s.reg.Disconnect("unknown-handle")

	_, ok := s.reg.Lookup("client-1")
	s.False(ok)
}

func (s *RegistrySuite) TestAvailabilityView() {
	s.reg.Connect("driver-1", "driver", "h1", &fakeConn{})
	s.reg.Connect("driver-2", "driver", "h2", &fakeConn{})

	s.reg.SetAvailability("driver-1", true, &Location{Lat: 36.75, Lon: 3.06})
	s.reg.SetAvailability("driver-2", true, nil)
	s.reg.SetAvailability("driver-2", false, nil)

	drivers := s.reg.AvailableDrivers()
	s.Require().Len(drivers, 1)
	s.Equal("driver-1", drivers[0].UserID)
	s.Require().NotNil(drivers[0].Location)
	s.InDelta(36.75, drivers[0].Location.Lat, 0.001)

	// going unavailable keeps the base entry for message delivery
	_, ok := s.reg.Lookup("driver-2")
	s.True(ok)
}

func (s *RegistrySuite) TestSetAvailabilityWithoutEntryIsNoop() {
	s.reg.SetAvailability("ghost", true, &Location{Lat: 1, Lon: 1})
	s.Empty(s.reg.AvailableDrivers())
}

func (s *RegistrySuite) TestUpdateLocation() {
	s.reg.Connect("driver-1", "driver", "h1", &fakeConn{})
	s.reg.SetAvailability("driver-1", true, &Location{Lat: 1, Lon: 1})

	s.reg.UpdateLocation("driver-1", Location{Lat: 2, Lon: 3})

	entry, ok := s.reg.Lookup("driver-1")
	s.Require().True(ok)
	s.InDelta(2.0, entry.Location.Lat, 0.001)
	s.InDelta(3.0, entry.Location.Lon, 0.001)

	// unknown driver never raises
	s.reg.UpdateLocation("ghost", Location{Lat: 9, Lon: 9})
}

func TestRegistryConcurrentAccess(t *testing.T) {
	reg := NewRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(3)
		go func() {
			defer wg.Done()
			reg.Connect("driver-1", "driver", "h", &fakeConn{})
		}()
		go func() {
			defer wg.Done()
			reg.UpdateLocation("driver-1", Location{Lat: 1, Lon: 1})
		}()
		go func() {
			defer wg.Done()
			reg.AvailableDrivers()
		}()
	}
	wg.Wait()

	_, ok := reg.Lookup("driver-1")
	require.True(t, ok)
}
