package geolib_test

import "github.com/stretchr/testify/mock"

type LoggerMock struct {
	mock.Mock
}

func (m *LoggerMock) BuildInfo(stage, msg string) {
	m.Called(stage, msg)
}

func (m *LoggerMock) BuildWarning(file, msg string) {
	m.Called(file, msg)
}

func (m *LoggerMock) LookupError(ip string, err error) {
	m.Called(ip, err)
}
