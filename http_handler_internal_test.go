package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/9seconds/iplocation/cdn"
	"github.com/9seconds/iplocation/geolib"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/suite"
)

type HTTPHandlerTestSuite struct {
	BaseTestSuite

	db             *geolib.Database
	resolver       *resolver
	handler        http.Handler
	datasetVersion string
}

func (suite *HTTPHandlerTestSuite) SetupTest() {
	suite.BaseTestSuite.SetupTest()

	suite.db = suite.buildDatabase()

	datasetVersion, err := cdn.Export(suite.ctx, suite.db, cdn.KindCountry, suite.fs,
		filepath.Join(testCDNDir, testCDNCountry))
	suite.Require().NoError(err)

	suite.datasetVersion = datasetVersion

	res, err := newResolver(suite.db, 16)
	suite.Require().NoError(err)

	suite.resolver = res
	suite.handler = makeHTTPHandler(suite.fs, suite.db, res, suite.conf)
}

func (suite *HTTPHandlerTestSuite) TearDownTest() {
	suite.resolver.Shutdown()
	suite.BaseTestSuite.TearDownTest()
}

func (suite *HTTPHandlerTestSuite) do(req *http.Request) *httptest.ResponseRecorder {
	recorder := httptest.NewRecorder()

	suite.handler.ServeHTTP(recorder, req)

	return recorder
}

func (suite *HTTPHandlerTestSuite) lookup(path string) (int, ResolveResult) {
	resp := suite.do(httptest.NewRequest(http.MethodGet, path, nil))
	response := struct {
		Result ResolveResult `json:"result"`
	}{}

	if resp.Code == http.StatusOK {
		suite.Equal("application/json", resp.Header().Get("Content-Type"))
		suite.NoError(json.Unmarshal(resp.Body.Bytes(), &response))
	}

	return resp.Code, response.Result
}

func (suite *HTTPHandlerTestSuite) decodeError(resp *httptest.ResponseRecorder) errorResponse {
	value := errorResponse{}

	suite.Require().NoError(json.Unmarshal(resp.Body.Bytes(), &value))

	return value
}

func (suite *HTTPHandlerTestSuite) TestLookupIP() {
	code, result := suite.lookup("/lookup/8.8.8.8")

	suite.Equal(http.StatusOK, code)
	suite.Equal("8.8.8.8", result.IP)
	suite.Require().NotNil(result.Result)
	suite.Equal("US", result.Result.Country)
	suite.Equal("Mountain View", result.Result.City)
}

func (suite *HTTPHandlerTestSuite) TestLookupIPv6() {
	code, result := suite.lookup("/lookup/2607:f8b0::200e")

	suite.Equal(http.StatusOK, code)
	suite.Require().NotNil(result.Result)
	suite.Equal("US", result.Result.Country)
}

func (suite *HTTPHandlerTestSuite) TestLookupNotFound() {
	code, result := suite.lookup("/lookup/1.1.1.1")

	suite.Equal(http.StatusOK, code)
	suite.Nil(result.Result)
}

func (suite *HTTPHandlerTestSuite) TestLookupInvalid() {
	resp := suite.do(httptest.NewRequest(http.MethodGet, "/lookup/invalid", nil))

	suite.Equal(http.StatusBadRequest, resp.Code)

	value := suite.decodeError(resp)

	suite.Equal(http.StatusBadRequest, value.Error.Status)
	suite.Equal("Incorrect IP address", value.Error.Message)
	suite.Contains(value.Error.Context, "invalid ip address")
}

func (suite *HTTPHandlerTestSuite) TestLookupSelf() {
	req := httptest.NewRequest(http.MethodGet, "/lookup", nil)
	req.RemoteAddr = "8.8.8.8:43210"

	resp := suite.do(req)

	suite.Equal(http.StatusOK, resp.Code)
	suite.Contains(resp.Body.String(), `"country":"US"`)
}

func (suite *HTTPHandlerTestSuite) TestLookupSelfRealIP() {
	req := httptest.NewRequest(http.MethodGet, "/lookup", nil)
	req.Header.Set("X-Real-IP", "81.0.3.4")

	resp := suite.do(req)

	suite.Equal(http.StatusOK, resp.Code)
	suite.Contains(resp.Body.String(), `"country":"DE"`)
	suite.Contains(resp.Body.String(), `"city":"Berlin"`)
}

func (suite *HTTPHandlerTestSuite) TestBatch() {
	req := httptest.NewRequest(http.MethodPost, "/lookup",
		strings.NewReader(`{"ips": ["81.0.0.1", "8.8.8.8", "81.0.0.1", "bad"]}`))
	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	resp := suite.do(req)

	suite.Require().Equal(http.StatusOK, resp.Code)

	response := struct {
		Results []ResolveResult `json:"results"`
	}{}

	suite.Require().NoError(json.Unmarshal(resp.Body.Bytes(), &response))
	suite.Require().Len(response.Results, 3)

	suite.Equal("81.0.0.1", response.Results[0].IP)
	suite.Equal("DE", response.Results[0].Result.Country)
	suite.Equal("8.8.8.8", response.Results[1].IP)
	suite.Equal("US", response.Results[1].Result.Country)
	suite.Equal("bad", response.Results[2].IP)
	suite.Nil(response.Results[2].Result)
	suite.Contains(response.Results[2].Error, "invalid ip address")
}

func (suite *HTTPHandlerTestSuite) TestBatchContentType() {
	req := httptest.NewRequest(http.MethodPost, "/lookup", strings.NewReader(`{"ips": ["8.8.8.8"]}`))
	req.Header.Set("Content-Type", "text/plain")

	resp := suite.do(req)

	suite.Equal(http.StatusUnsupportedMediaType, resp.Code)
	suite.Equal("Incorrect content type", suite.decodeError(resp).Error.Message)
}

func (suite *HTTPHandlerTestSuite) TestBatchIncorrectBody() {
	testData := map[string]int{
		`{"ips": []}`:  http.StatusBadRequest,
		`{}`:           http.StatusBadRequest,
		`{"ips": "1"}`: http.StatusBadRequest,
		`[`:            http.StatusBadRequest,
	}

	for body, code := range testData {
		body := body
		code := code

		suite.Run(body, func() {
			req := httptest.NewRequest(http.MethodPost, "/lookup", strings.NewReader(body))
			req.Header.Set("Content-Type", "application/json")

			suite.Equal(code, suite.do(req).Code)
		})
	}
}

func (suite *HTTPHandlerTestSuite) TestInfo() {
	resp := suite.do(httptest.NewRequest(http.MethodGet, "/info", nil))

	suite.Require().Equal(http.StatusOK, resp.Code)

	response := struct {
		Fields     []string `json:"fields"`
		Signature  string   `json:"signature"`
		IPv4Ranges int      `json:"ipv4_ranges"`
		IPv6Ranges int      `json:"ipv6_ranges"`
	}{}

	suite.Require().NoError(json.Unmarshal(resp.Body.Bytes(), &response))
	suite.ElementsMatch([]string{"country", "latitude", "longitude", "city"}, response.Fields)
	suite.Equal(suite.conf.GetLayout().Signature(), response.Signature)
	suite.Equal(2, response.IPv4Ranges)
	suite.Equal(1, response.IPv6Ranges)
}

func (suite *HTTPHandlerTestSuite) TestStats() {
	suite.lookup("/lookup/8.8.8.8")
	suite.lookup("/lookup/1.1.1.1")
	suite.lookup("/lookup/bad")

	resp := suite.do(httptest.NewRequest(http.MethodGet, "/stats", nil))

	suite.Require().Equal(http.StatusOK, resp.Code)

	response := struct {
		Stats struct {
			LastUsed      int64  `json:"last_used"`
			FoundCount    uint64 `json:"found_count"`
			NotFoundCount uint64 `json:"not_found_count"`
			FailureCount  uint64 `json:"failure_count"`
		} `json:"stats"`
	}{}

	suite.Require().NoError(json.Unmarshal(resp.Body.Bytes(), &response))
	suite.EqualValues(1, response.Stats.FoundCount)
	suite.EqualValues(1, response.Stats.NotFoundCount)
	suite.EqualValues(1, response.Stats.FailureCount)
	suite.NotZero(response.Stats.LastUsed)
}

func (suite *HTTPHandlerTestSuite) TestCDN() {
	resp := suite.do(httptest.NewRequest(http.MethodGet, "/cdn/country/4.idx", nil))

	suite.Require().Equal(http.StatusOK, resp.Code)
	suite.Equal(suite.datasetVersion, resp.Header().Get(cdn.DefaultVersionHeader))
	suite.Equal(cacheUnpinned, resp.Header().Get("Cache-Control"))

	content, err := afero.ReadFile(suite.fs, filepath.Join(testCDNDir, testCDNCountry, "4.idx"))

	suite.NoError(err)
	suite.Equal(content, resp.Body.Bytes())
}

func (suite *HTTPHandlerTestSuite) TestCDNPinned() {
	resp := suite.do(httptest.NewRequest(http.MethodGet,
		"/cdn/country@"+suite.datasetVersion+"/4/_0", nil))

	suite.Equal(http.StatusOK, resp.Code)
	suite.Equal(cachePinned, resp.Header().Get("Cache-Control"))

	resp = suite.do(httptest.NewRequest(http.MethodGet, "/cdn/country@1.0.0/4/_0", nil))

	suite.Equal(http.StatusNotFound, resp.Code)
	suite.Equal("Dataset version is not available", suite.decodeError(resp).Error.Message)
}

func (suite *HTTPHandlerTestSuite) TestCDNNotFound() {
	paths := []string{
		"/cdn/geocode/4.idx",
		"/cdn/country/4/_z",
		"/cdn/.hidden/4.idx",
	}

	for _, path := range paths {
		path := path

		suite.Run(path, func() {
			resp := suite.do(httptest.NewRequest(http.MethodGet, path, nil))

			suite.Equal(http.StatusNotFound, resp.Code)
		})
	}
}

func (suite *HTTPHandlerTestSuite) TestCDNClient() {
	server := httptest.NewServer(suite.handler)
	defer server.Close()

	client := cdn.NewClient(server.URL+"/cdn/"+testCDNCountry, cdn.KindCountry)
	defer client.Close()

	result, err := client.Lookup(suite.ctx, "81.0.200.1")

	suite.NoError(err)
	suite.Require().NotNil(result)
	suite.Equal("DE", result.Country)

	result, err = client.Lookup(suite.ctx, "2607:f8b0::1")

	suite.NoError(err)
	suite.Require().NotNil(result)
	suite.Equal("US", result.Country)

	result, err = client.Lookup(suite.ctx, "1.1.1.1")

	suite.NoError(err)
	suite.Nil(result)
}

func TestHTTPHandler(t *testing.T) {
	suite.Run(t, &HTTPHandlerTestSuite{})
}
