package serial

import "github.com/stretchr/testify/mock"

type portMock struct {
	mock.Mock
}

func (p *portMock) Read(b []byte) (int, error) {
	args := p.Called()
	return args.Int(0), args.Error(1)
}

func (p *portMock) Write(b []byte) (int, error) {
	args := p.Called(string(b))
	return args.Int(0), args.Error(1)
}

func (p *portMock) Flush() error {
	args := p.Called()
	return args.Error(0)
}

func (p *portMock) Close() error {
	args := p.Called()
	return args.Error(0)
}
