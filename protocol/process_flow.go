package protocol

import (
	"fmt"
	"io"
	"time"
)

// ProcessFlowType describes an entry or exit in the process flow toolbox.
type ProcessFlowType uint32

// Process flow types.
const (
	FlowEnterMethod  ProcessFlowType = 0
	FlowLeaveMethod  ProcessFlowType = 1
	FlowEnterThread  ProcessFlowType = 2
	FlowLeaveThread  ProcessFlowType = 3
	FlowEnterProcess ProcessFlowType = 4
	FlowLeaveProcess ProcessFlowType = 5
)

// ProcessFlow tracks method, thread, and process boundaries.
type ProcessFlow struct {
	Type      ProcessFlowType
	Title     string
	HostName  string
	PID       uint32
	TID       uint32
	Timestamp time.Time
}

// NewProcessFlow returns a process flow record.
func NewProcessFlow(t ProcessFlowType, title string) *ProcessFlow {
	return &ProcessFlow{
		Type:  t,
		Title: title,
	}
}

// Kind implements Record
func (p *ProcessFlow) Kind() RecordKind { return KindProcessFlow }

// EstimatedSize implements Record
func (p *ProcessFlow) EstimatedSize() int {
	return estimateBase + len(p.Title) + len(p.HostName)
}

// WriteTo implements io.WriterTo
func (p *ProcessFlow) WriteTo(w io.Writer) (int64, error) {
	var bw bodyWriter
	bw.u32(uint32(p.Type))
	bw.u32(uint32(len(p.Title)))
	bw.u32(uint32(len(p.HostName)))
	bw.u32(p.PID)
	bw.u32(p.TID)
	bw.f64(TimeToWire(p.Timestamp))
	bw.str(p.Title)
	bw.str(p.HostName)
	return writeFrame(w, KindProcessFlow, bw.b)
}

func (p *ProcessFlow) String() string {
	return fmt.Sprintf("ProcessFlow<type: %d, title: %q>", p.Type, p.Title)
}

// ParseProcessFlow decodes a process flow frame body.
func ParseProcessFlow(body []byte) (*ProcessFlow, error) {
	br := bodyReader{b: body}
	p := &ProcessFlow{}

	ft, err := br.u32()
	if err != nil {
		return nil, err
	}
	titleLen, err := br.u32()
	if err != nil {
		return nil, err
	}
	hostLen, err := br.u32()
	if err != nil {
		return nil, err
	}
	pid, err := br.u32()
	if err != nil {
		return nil, err
	}
	tid, err := br.u32()
	if err != nil {
		return nil, err
	}
	ts, err := br.f64()
	if err != nil {
		return nil, err
	}
	title, err := br.take(int(titleLen))
	if err != nil {
		return nil, err
	}
	host, err := br.take(int(hostLen))
	if err != nil {
		return nil, err
	}

	p.Type = ProcessFlowType(ft)
	p.PID = pid
	p.TID = tid
	p.Timestamp = WireToTime(ts)
	p.Title = string(title)
	p.HostName = string(host)
	return p, nil
}
