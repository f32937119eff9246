package mysensors

import "os"

type filesystemManagement interface {
	writeRegistryFile(filepath string, data []byte) error
}

type fileManagement struct{}

func (fs *fileManagement) writeRegistryFile(filepath string, data []byte) error {
	return os.WriteFile(filepath, data, 0600)
}
