package metrics

// Noop discards every measurement.
type Noop struct{}

func (Noop) IncStorageWrites(string)     {}
func (Noop) IncWritesDropped(string)     {}
func (Noop) IncEvictions(string)         {}
func (Noop) IncDecodeFailures()          {}
func (Noop) IncDurableWriteFailures()    {}
func (Noop) AddMigratedKeys(int)         {}
func (Noop) SetActiveBackend(string)     {}
func (Noop) SetStorageBytes(string, int) {}
func (Noop) SetStartupTime(float64)      {}
