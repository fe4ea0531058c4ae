package scan

// RemoteCamera stands in for the capture device that lives on the operator's
// browser. The server side only tracks acquisition; decoded frames arrive
// over the API. Start never fails here — a client whose device cannot be
// acquired reports that by never opening the session.
type RemoteCamera struct{}

func (RemoteCamera) Start() error { return nil }
func (RemoteCamera) Stop()        {}
