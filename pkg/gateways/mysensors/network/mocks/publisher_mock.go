package mocks

import (
	"github.com/janael-pinheiro/mysensors-gateway-golang/pkg/entities"
	"github.com/stretchr/testify/mock"
)

type PublisherMock struct {
	mock.Mock
}

func (p *PublisherMock) PublishNodeDiscovered(node entities.Node) error {
	args := p.Called(node)
	return args.Error(0)
}

func (p *PublisherMock) PublishPresentation(message entities.Message) error {
	args := p.Called(message)
	return args.Error(0)
}

func (p *PublisherMock) PublishSet(message entities.Message) error {
	args := p.Called(message)
	return args.Error(0)
}

func (p *PublisherMock) PublishRequest(message entities.Message) error {
	args := p.Called(message)
	return args.Error(0)
}

func (p *PublisherMock) PublishInternal(message entities.Message) error {
	args := p.Called(message)
	return args.Error(0)
}
