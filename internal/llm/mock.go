package llm

import "context"

// MockClient streams scripted fragments; used by tests and dry runs.
type MockClient struct {
	Fragments []Fragment
	PingErr   error
	ModelList []string
}

func (m *MockClient) Chat(ctx context.Context, model string, messages []Message, fn func(Fragment) error) error {
	for _, f := range m.Fragments {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(f); err != nil {
			return err
		}
		if f.Done {
			return nil
		}
	}
	return fn(Fragment{Done: true})
}

func (m *MockClient) Ping(ctx context.Context) error { return m.PingErr }

func (m *MockClient) Models(ctx context.Context) ([]string, error) {
	return m.ModelList, nil
}
