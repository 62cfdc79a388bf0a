package server

import (
	"net/http"
	"time"

	"github.com/shirou/gopsutil/v3/host"

	"diskdock/agent/smart-agent/pkg/httpx"
)

type healthResponse struct {
	OK        bool   `json:"ok"`
	Hostname  string `json:"hostname"`
	OS        string `json:"os"`
	Kernel    string `json:"kernel"`
	UptimeSec uint64 `json:"uptime_sec"`
	Time      string `json:"time"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{OK: true, Time: time.Now().UTC().Format(time.RFC3339)}
	if info, err := host.Info(); err == nil {
		resp.Hostname = info.Hostname
		resp.OS = info.OS
		resp.Kernel = info.KernelVersion
		resp.UptimeSec = info.Uptime
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}
