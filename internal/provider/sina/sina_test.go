package sina_test

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"golang.org/x/text/encoding/simplifiedchinese"

	"stockticker/internal/httpx"
	"stockticker/internal/mocks"
	"stockticker/internal/provider"
	"stockticker/internal/provider/sina"
	"stockticker/internal/symbol"
)

func payload(code string, n int, set map[int]string) string {
	fields := make([]string, n)
	for i, v := range set {
		fields[i] = v
	}
	return fmt.Sprintf("var hq_str_%s=\"%s\";\n", code, strings.Join(fields, ","))
}

func gbkResponse(t *testing.T, status int, text string) *http.Response {
	t.Helper()
	encoded, err := simplifiedchinese.GBK.NewEncoder().String(text)
	require.NoError(t, err)
	return &http.Response{StatusCode: status, Body: io.NopCloser(bytes.NewBufferString(encoded))}
}

func TestFetch_AShare(t *testing.T) {
	t.Parallel()

	// Arrange: create a mock HTTP client
	ctrl := gomock.NewController(t)
	httpClient := mocks.NewMockHTTPClient(ctrl)

	record := map[int]string{
		0: "浦发银行", 1: "10.00", 2: "10.00", 3: "10.20",
		9: "300", 11: "100", 13: "0", 15: "0", 17: "0",
		19: "100", 21: "0", 23: "0", 25: "0", 27: "0",
		30: "2024-01-05", 31: "15:00:03",
	}

	// Assert: Referer and browser headers are sent to the https endpoint
	httpClient.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(req *http.Request) (*http.Response, error) {
			require.Equal(t, "https://hq.sinajs.cn/list=sh600000", req.URL.String())
			require.Equal(t, sina.DefaultReferer, req.Header.Get("Referer"))
			require.Equal(t, httpx.BrowserUserAgent, req.Header.Get("User-Agent"))
			require.Equal(t, "*/*", req.Header.Get("Accept"))
			require.Equal(t, "zh-CN,zh;q=0.9,en;q=0.8", req.Header.Get("Accept-Language"))
			return gbkResponse(t, http.StatusOK, payload("sh600000", 33, record)), nil
		}).
		Times(1)

	// Act
	p := sina.New(sina.Config{FallbackEndpoint: sina.DefaultFallbackEndpoint}, &httpx.Client{HTTP: httpClient})
	q, err := p.Fetch(t.Context(), "600000")

	// Assert
	require.NoError(t, err)
	require.Equal(t, "sina", p.Name())
	require.Equal(t, "600000.SH", q.Symbol)
	require.Equal(t, "浦发银行", q.Name)
	require.InDelta(t, 10.20, q.Price, 1e-9)
	require.InDelta(t, 0.20, q.Change, 1e-9)
	require.InDelta(t, 2.0, q.ChangePercent, 1e-9)
	require.Equal(t, symbol.CNY, q.Currency)
	require.Equal(t, provider.SourceSina, q.Source)
	require.Nil(t, q.VolumeRatio)

	require.NotNil(t, q.BidAskImbalance)
	require.InDelta(t, 60.0, *q.BidAskImbalance, 1e-9)
	require.NotNil(t, q.UpdatedAt)
	require.Equal(t, "2024-01-05 15:00:03", *q.UpdatedAt)
}

func TestParse_AShareChange(t *testing.T) {
	t.Parallel()

	d := sina.NewDialect(sina.Config{})

	q, err := d.Parse("sz000001", `var hq_str_sz000001="51,10,9,10.50,11,9,10.4";`)

	// Assert: change is field 3 minus field 2
	require.NoError(t, err)
	require.Equal(t, "51", q.Name)
	require.InDelta(t, 10.50, q.Price, 1e-9)
	require.InDelta(t, 1.5, q.Change, 1e-9)
	require.InDelta(t, 1.5/9*100, q.ChangePercent, 1e-9)
	require.Nil(t, q.BidAskImbalance)
	require.Nil(t, q.UpdatedAt)
}

func TestFetch_USFallsBackToHTTP(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := mocks.NewMockHTTPClient(ctrl)

	gomock.InOrder(
		httpClient.EXPECT().
			Do(gomock.Any()).
			DoAndReturn(func(req *http.Request) (*http.Response, error) {
				require.Equal(t, "https://hq.sinajs.cn/list=gb_aapl", req.URL.String())
				return gbkResponse(t, http.StatusForbidden, "Kinsoku jikou desu!"), nil
			}),
		httpClient.EXPECT().
			Do(gomock.Any()).
			DoAndReturn(func(req *http.Request) (*http.Response, error) {
				require.Equal(t, "http://hq.sinajs.cn/list=gb_aapl", req.URL.String())
				require.Equal(t, sina.DefaultReferer, req.Header.Get("Referer"))
				return gbkResponse(t, http.StatusOK,
					`var hq_str_gb_aapl="苹果,190.50,1.50,2024-01-05 09:30:00,0.79,189.00,191.00,188.50,199.62,164.08,12345,67890,2960000000,7.91,24.08,0.00,0.00,0.24,0.00,0,0,189.00";`), nil
			}),
	)

	p := sina.New(sina.Config{FallbackEndpoint: sina.DefaultFallbackEndpoint}, &httpx.Client{HTTP: httpClient})
	q, err := p.Fetch(t.Context(), "aapl")

	require.NoError(t, err)
	require.Equal(t, "AAPL", q.Symbol)
	require.Equal(t, "苹果", q.Name)
	require.InDelta(t, 190.50, q.Price, 1e-9)
	require.InDelta(t, 1.50, q.Change, 1e-9)
	require.InDelta(t, 1.5/189*100, q.ChangePercent, 1e-9)
	require.Equal(t, symbol.USD, q.Currency)
	require.NotNil(t, q.UpdatedAt)
	require.Equal(t, "2024-01-05 09:30:00", *q.UpdatedAt)
}

func TestFetch_403WithoutFallback(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := mocks.NewMockHTTPClient(ctrl)
	httpClient.EXPECT().
		Do(gomock.Any()).
		Return(gbkResponse(t, http.StatusForbidden, ""), nil).
		Times(1)

	_, err := sina.New(sina.Config{}, &httpx.Client{HTTP: httpClient}).Fetch(t.Context(), "aapl")
	require.ErrorIs(t, err, provider.ErrTransport)
}

func TestParse_USRecoversPrevClose(t *testing.T) {
	t.Parallel()

	d := sina.NewDialect(sina.Config{})

	// Arrange: last field is zero, change not numeric
	q, err := d.Parse("gb_tsla", `var hq_str_gb_tsla="Tesla,250,x,0,0";`)
	require.NoError(t, err)
	require.Zero(t, q.Change)
	require.Zero(t, q.ChangePercent)
	require.Nil(t, q.UpdatedAt)

	// Arrange: last field unparsable, change present
	q, err = d.Parse("gb_tsla", `var hq_str_gb_tsla="Tesla,110,10,bad";`)
	require.NoError(t, err)
	require.InDelta(t, 10.0, q.ChangePercent, 1e-9)
}

func TestParse_Errors(t *testing.T) {
	t.Parallel()

	d := sina.NewDialect(sina.Config{})

	_, err := d.Parse("sh999999", `var hq_str_sh999999="";`)
	require.ErrorIs(t, err, provider.ErrNoQuote)

	_, err = d.Parse("sh600000", `Forbidden`)
	require.ErrorIs(t, err, provider.ErrDecode)

	_, err = d.Parse("sh600000", `var hq_str_sh600000="a,b,c";`)
	require.ErrorIs(t, err, provider.ErrParse)

	_, err = d.Parse("sh600000", `var hq_str_sh600000="a,1,x,10";`)
	require.ErrorIs(t, err, provider.ErrParse)

	_, err = d.Parse("sh600000", `var hq_str_sh600000="a,1,9,--";`)
	require.ErrorIs(t, err, provider.ErrNoQuote)

	_, err = d.Parse("gb_aapl", `var hq_str_gb_aapl="a,b";`)
	require.ErrorIs(t, err, provider.ErrParse)

	// Three fields would leave the change as the last field, read as prev close.
	q, err := d.Parse("gb_aapl", `var hq_str_gb_aapl="Apple,190.5,1.5";`)
	require.ErrorIs(t, err, provider.ErrParse)
	require.Nil(t, q)
}

func TestCode(t *testing.T) {
	t.Parallel()

	d := sina.NewDialect(sina.Config{})

	cases := map[string]string{
		"600000":    "sh600000",
		"000001":    "sz000001",
		"159919.SH": "sh159919",
		"0700":      "hk00700",
		"AAPL":      "gb_aapl",
	}
	for in, want := range cases {
		got, err := d.Code(symbol.Parse(in))
		require.NoError(t, err)
		require.Equal(t, want, got)
	}

	_, err := d.Code(symbol.Parse("BRK.B"))
	require.ErrorIs(t, err, provider.ErrUnsupported)
}

func TestEndpoints(t *testing.T) {
	t.Parallel()

	d := sina.NewDialect(sina.Config{FallbackEndpoint: sina.DefaultFallbackEndpoint})
	require.Equal(t, []string{
		"https://hq.sinajs.cn/list=sh600000",
		"http://hq.sinajs.cn/list=sh600000",
	}, d.Endpoints("sh600000"))

	d = sina.NewDialect(sina.Config{Endpoint: "http://mirror.test/list="})
	require.Equal(t, []string{"http://mirror.test/list=sh600000"}, d.Endpoints("sh600000"))
}
