package rtc

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"deskrelay/internal/capture"
	"deskrelay/internal/clients"
	"deskrelay/internal/dispatch"
	"deskrelay/internal/input"
	"deskrelay/internal/session"

	"github.com/pion/webrtc/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type blankGrabber struct{}

func (blankGrabber) Grab(int) (*image.RGBA, error) {
	return image.NewRGBA(image.Rect(0, 0, 1280, 720)), nil
}

func (blankGrabber) ScaleFactor(int) float64 { return 1 }

func newTestHandler(t *testing.T) (*Handler, *httptest.Server, *clients.Manager) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	state := session.New(nil, nil)
	mgr := clients.NewManager()
	d, err := dispatch.New(dispatch.Deps{
		State:    state,
		Source:   capture.NewSource(blankGrabber{}, state.Scale, time.Second),
		Injector: input.NewInjector(input.NewRecorder(nil), state.Mapper, input.Options{}, nil),
		Notify:   mgr,
	}, dispatch.Options{}, nil)
	require.NoError(t, err)

	h := NewHandler(ctx, Config{}, d, mgr, nil)
	t.Cleanup(h.Close)
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return h, srv, mgr
}

func TestOfferRejectsGarbage(t *testing.T) {
	_, srv, _ := newTestHandler(t)

	resp, err := http.Post(srv.URL+"/rtc/offer", "application/json", bytes.NewBufferString("{"))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = http.Post(srv.URL+"/rtc/offer", "application/json", bytes.NewBufferString(`{"type":"answer","sdp":""}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/rtc/unknown", nil)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestActionsOverDataChannel(t *testing.T) {
	h, srv, mgr := newTestHandler(t)

	pc, err := webrtc.NewPeerConnection(webrtc.Configuration{})
	require.NoError(t, err)
	defer pc.Close()

	dc, err := pc.CreateDataChannel(LabelActions, nil)
	require.NoError(t, err)
	opened := make(chan struct{})
	replies := make(chan map[string]any, 4)
	dc.OnOpen(func() { close(opened) })
	dc.OnMessage(func(msg webrtc.DataChannelMessage) {
		var m map[string]any
		if json.Unmarshal(msg.Data, &m) == nil {
			replies <- m
		}
	})

	offer, err := pc.CreateOffer(nil)
	require.NoError(t, err)
	gathered := webrtc.GatheringCompletePromise(pc)
	require.NoError(t, pc.SetLocalDescription(offer))
	<-gathered

	body, err := json.Marshal(pc.LocalDescription())
	require.NoError(t, err)
	resp, err := http.Post(srv.URL+"/rtc/offer", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var ans Answer
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&ans))
	assert.NotEmpty(t, ans.ID)
	assert.Equal(t, "/rtc/"+ans.ID, resp.Header.Get("Location"))
	require.NoError(t, pc.SetRemoteDescription(webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: ans.SDP}))

	select {
	case <-opened:
	case <-time.After(10 * time.Second):
		t.Fatal("data channel did not open")
	}
	assert.Equal(t, 1, h.Sessions())

	require.Eventually(t, func() bool {
		_, n := mgr.Counts()
		return n == 1
	}, 5*time.Second, 20*time.Millisecond)

	require.NoError(t, dc.SendText(`{"id":"1","action":"echo","message":"over rtc"}`))
	select {
	case m := <-replies:
		assert.Equal(t, "OVER RTC", m["message"])
		assert.Equal(t, "1", m["id"])
	case <-time.After(5 * time.Second):
		t.Fatal("no reply")
	}

	req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/rtc/"+ans.ID, nil)
	del, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	del.Body.Close()
	assert.Equal(t, http.StatusOK, del.StatusCode)
	assert.Zero(t, h.Sessions())
	_, n := mgr.Counts()
	assert.Zero(t, n)
}

func TestParseOfferRawSDP(t *testing.T) {
	offer, err := parseOffer("application/sdp", []byte("v=0\r\n"))
	require.NoError(t, err)
	assert.Equal(t, webrtc.SDPTypeOffer, offer.Type)
	assert.Equal(t, "v=0\r\n", offer.SDP)
}
