package registry

import (
	"context"
	"os"

	"github.com/uber/rd-bridge/src/hosts/hostrt"
	"github.com/uber/rd-bridge/src/rd-lib/model/typeproviders"
	"github.com/uber/rd-bridge/src/rd-lib/protocol"
	"go.uber.org/zap"
)

// Bind implements the type provider model on server.
func Bind(server *typeproviders.Server, reg *Registry, rt hostrt.RuntimeConfig, logger *zap.SugaredLogger) error {
	server.ListProviders.Set(func(context.Context, protocol.Void) ([]typeproviders.ProviderInfo, error) {
		manifests := reg.Providers()
		out := make([]typeproviders.ProviderInfo, 0, len(manifests))
		for _, m := range manifests {
			info := typeproviders.ProviderInfo{Name: m.Name, Namespace: m.Namespace, Types: []string{}}
			for _, t := range m.Types {
				info.Types = append(info.Types, t.Name)
			}
			out = append(out, info)
		}
		return out, nil
	})

	server.ResolveDoc.Set(func(_ context.Context, req typeproviders.ResolveDocRequest) (typeproviders.ResolveDocResult, error) {
		text, found := reg.Resolve(req.Names, req.Identifier)
		logger.Debugw("resolve doc", "names", req.Names, "identifier", req.Identifier, "found", found)
		return typeproviders.ResolveDocResult{Found: found, Text: text}, nil
	})

	return server.HostRuntime.Set(typeproviders.RuntimeInfo{
		Runtime:  rt.RuntimeOptions.Framework.Name,
		Version:  rt.RuntimeOptions.Framework.Version,
		Platform: rt.RuntimeOptions.Platform,
		PID:      int32(os.Getpid()),
	})
}

// Invalidate fires ProviderInvalidated for a provider.
func Invalidate(server *typeproviders.Server, logger *zap.SugaredLogger) func(string) {
	return func(provider string) {
		if err := server.ProviderInvalidated.Fire(typeproviders.ProviderRef{Name: provider}); err != nil {
			logger.Debugw("provider invalidation not delivered", "provider", provider, zap.Error(err))
		}
	}
}
