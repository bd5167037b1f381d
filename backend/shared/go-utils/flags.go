package utils

import (
	"errors"
	"time"

	"github.com/launchdarkly/go-sdk-common/v3/ldcontext"
	ld "github.com/launchdarkly/go-server-sdk/v7"
)

// FlagSnapshot reads LaunchDarkly flags once at startup. A nil snapshot is
// valid and answers every lookup with its default, so services run without
// LaunchDarkly in local setups.
type FlagSnapshot struct {
	client *ld.LDClient
	ctx    ldcontext.Context
}

// OpenFlagSnapshot connects to LaunchDarkly with sdkKey. Evaluation uses a
// server-side context of the given kind and key.
func OpenFlagSnapshot(sdkKey, contextKind, contextKey string, timeout time.Duration) (*FlagSnapshot, error) {
	if sdkKey == "" {
		return nil, errors.New("LaunchDarkly SDK key is empty")
	}
	client, err := ld.MakeClient(sdkKey, timeout)
	if err != nil {
		return nil, err
	}
	if !client.Initialized() {
		_ = client.Close()
		return nil, errors.New("LaunchDarkly client failed to initialize")
	}
	return &FlagSnapshot{
		client: client,
		ctx:    ldcontext.NewWithKind(ldcontext.Kind(contextKind), contextKey),
	}, nil
}

func (f *FlagSnapshot) Bool(flag string, def bool) bool {
	if f == nil || f.client == nil {
		return def
	}
	v, err := f.client.BoolVariation(flag, f.ctx, def)
	if err != nil {
		Logger.WithError(err).Warnf("Error retrieving %s flag, using default %t", flag, def)
		return def
	}
	Logger.Debugf("%s flag: %t", flag, v)
	return v
}

func (f *FlagSnapshot) String(flag, def string) string {
	if f == nil || f.client == nil {
		return def
	}
	v, err := f.client.StringVariation(flag, f.ctx, def)
	if err != nil || v == "" {
		if err != nil {
			Logger.WithError(err).Warnf("Error retrieving %s flag, using default", flag)
		}
		return def
	}
	Logger.Debugf("%s flag: %s", flag, v)
	return v
}

// Close releases the LaunchDarkly connection.
func (f *FlagSnapshot) Close() {
	if f != nil && f.client != nil {
		_ = f.client.Close()
	}
}
