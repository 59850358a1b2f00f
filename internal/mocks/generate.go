// Package mocks provides gomock implementations of the ports.
//
// This package uses go.uber.org/mock (gomock) to generate type-safe mocks for our port interfaces.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	client := mocks.NewMockSessionClient(ctrl)
//	client.EXPECT().GetCurrentUser(gomock.Any()).Return(&identity, nil)
package mocks

//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=session_client_mock.go github.com/gelatohub/painel/internal/ports SessionClient

//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=record_client_mock.go github.com/gelatohub/painel/internal/ports RecordClient

//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=config_repository_mock.go github.com/gelatohub/painel/internal/ports ConfigRepository
