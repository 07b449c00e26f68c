package courier

import (
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

type httpDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// HTTPClient 调用外部快递历史聚合服务。
//
// 响应格式：
//
//	{"status":"success","courierData":{
//	    "pathao":{"name":"Pathao","total_parcel":3,"success_parcel":2,"cancelled_parcel":1,"success_ratio":66.7},
//	    "summary":{"total_parcel":3,"success_parcel":2,"cancelled_parcel":1,"success_ratio":66.7}}}
type HTTPClient struct {
	http    httpDoer
	baseURL string
	apiKey  string
}

// NewHTTPClient 创建客户端，timeout 为 0 时使用 10 秒。
func NewHTTPClient(baseURL, apiKey string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPClient{
		http:    &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		apiKey:  strings.TrimSpace(apiKey),
	}
}

// SetHTTPClient 覆盖默认 HTTP 客户端，主要用于测试。
func (c *HTTPClient) SetHTTPClient(client httpDoer) {
	if client == nil {
		c.http = &http.Client{Timeout: 10 * time.Second}
		return
	}
	c.http = client
}

// Fetch 查询号码的历史。404 或缺少 summary 时返回 ErrNoHistory。
func (c *HTTPClient) Fetch(ctx context.Context, phone string) (Report, error) {
	if c.baseURL == "" {
		return Report{}, ErrNotConfigured
	}

	endpoint := c.baseURL + "?phone=" + url.QueryEscape(phone)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Report{}, fmt.Errorf("create courier request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "pagecart/1.0")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return Report{}, fmt.Errorf("request courier history: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Report{}, fmt.Errorf("read courier response: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return Report{}, ErrNoHistory
	}
	if resp.StatusCode >= http.StatusBadRequest {
		msg := strings.TrimSpace(gjson.GetBytes(body, "message").String())
		if msg == "" {
			msg = resp.Status
		}
		return Report{}, fmt.Errorf("courier service returned %d: %s", resp.StatusCode, msg)
	}
	if !gjson.ValidBytes(body) {
		return Report{}, fmt.Errorf("courier service returned malformed JSON")
	}

	return parseReport(phone, body)
}

func parseReport(phone string, body []byte) (Report, error) {
	data := gjson.GetBytes(body, "courierData")
	summary := data.Get("summary")
	if !summary.Exists() {
		return Report{}, ErrNoHistory
	}

	report := Report{Phone: phone, Summary: parseRecord(summary)}
	data.ForEach(func(key, value gjson.Result) bool {
		if key.String() == "summary" || !value.IsObject() {
			return true
		}
		name := strings.TrimSpace(value.Get("name").String())
		if name == "" {
			name = key.String()
		}
		report.Couriers = append(report.Couriers, CourierRecord{Name: name, Record: parseRecord(value)})
		return true
	})
	return report, nil
}

// parseRecord 读取一组统计；缺少 success_ratio 时按成功数与总数计算。
func parseRecord(v gjson.Result) Record {
	r := Record{
		TotalParcels:      int(v.Get("total_parcel").Int()),
		SuccessfulParcels: int(v.Get("success_parcel").Int()),
		CancelledParcels:  int(v.Get("cancelled_parcel").Int()),
	}
	if ratio := v.Get("success_ratio"); ratio.Exists() {
		r.SuccessRatio = ratio.Float()
	} else if r.TotalParcels > 0 {
		r.SuccessRatio = math.Round(float64(r.SuccessfulParcels)*1000/float64(r.TotalParcels)) / 10
	}
	return r
}
