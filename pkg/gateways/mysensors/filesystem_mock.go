package mysensors

import (
	"sync"

	"github.com/stretchr/testify/mock"
)

type fileManagementMock struct {
	mock.Mock

	writtenMutex sync.Mutex
	written      [][]byte
}

func (fm *fileManagementMock) writeRegistryFile(filepath string, data []byte) error {
	fm.writtenMutex.Lock()
	fm.written = append(fm.written, data)
	fm.writtenMutex.Unlock()
	args := fm.Called(filepath)
	return args.Error(0)
}

func (fm *fileManagementMock) lastWrite() []byte {
	fm.writtenMutex.Lock()
	defer fm.writtenMutex.Unlock()
	if len(fm.written) == 0 {
		return nil
	}
	return fm.written[len(fm.written)-1]
}
