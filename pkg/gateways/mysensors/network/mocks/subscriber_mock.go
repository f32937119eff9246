package mocks

import (
	"github.com/janael-pinheiro/mysensors-gateway-golang/pkg/gateways/mysensors/network"
	"github.com/stretchr/testify/mock"
)

type SubscriberMock struct {
	mock.Mock
}

func (s *SubscriberMock) SubscribeToCommandMessages(msgChan chan network.InMsg) error {
	args := s.Called(msgChan)
	return args.Error(0)
}
