package provider

import "context"

// Observer receives one call per provider request.
type Observer interface {
	ObserveProvider(operation string, err error)
}

type instrumentedAPI struct {
	api      API
	observer Observer
}

// Instrument reports every call made through api to observer.
func Instrument(api API, observer Observer) API {
	if observer == nil {
		return api
	}
	return &instrumentedAPI{api: api, observer: observer}
}

func (i *instrumentedAPI) Launch(ctx context.Context, agentID string, args map[string]any) (string, error) {
	id, err := i.api.Launch(ctx, agentID, args)
	i.observer.ObserveProvider("launch", err)
	return id, err
}

func (i *instrumentedAPI) FetchOutput(ctx context.Context, containerID string) (*FetchOutputResponse, error) {
	resp, err := i.api.FetchOutput(ctx, containerID)
	i.observer.ObserveProvider("fetch_output", err)
	return resp, err
}
