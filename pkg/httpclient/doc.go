// Package httpclient は外部REST APIとJSONでやり取りするHTTPクライアントを提供する。
//
// Home AssistantのREST APIなど、Bearerトークンで保護された単一のAPIを
// 呼び出す際に使用する。非2xxのレスポンスは*StatusErrorとして返し、
// 呼び出し側がステータスコードで分岐できるようにする。
package httpclient
