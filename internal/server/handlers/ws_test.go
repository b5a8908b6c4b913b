package handlers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/gophcollab/internal/crdt"
	"github.com/iudanet/gophcollab/internal/models"
	"github.com/iudanet/gophcollab/internal/wire"
	"github.com/iudanet/gophcollab/pkg/api"
)

func TestWS_PlainSession(t *testing.T) {
	srv := setupTestServer(t, models.ModePlain)

	c1 := srv.dial(t, "/ws/org/repo/main/a.md", nil)
	writeJSON(t, c1, `{"type":"init","content":"hello"}`)
	init1 := readJSON(t, c1)
	require.Equal(t, api.TypeInit, init1.Type)
	assert.Equal(t, "hello", *init1.Content)
	assert.NotEmpty(t, init1.ConnectionID)

	c2 := srv.dial(t, "/ws/org/repo/main/a.md", nil)
	writeJSON(t, c2, `{"type":"init","content":"ignored"}`)
	init2 := readJSON(t, c2)
	assert.Equal(t, "hello", *init2.Content)
	assert.NotEqual(t, init1.ConnectionID, init2.ConnectionID)

	writeJSON(t, c1, `{"type":"change","changes":{"from":5,"to":5,"insert":" world"}}`)
	change := readJSON(t, c2)
	assert.Equal(t, api.TypeChange, change.Type)
	assert.Equal(t, &api.Change{From: 5, To: 5, Insert: " world"}, change.Changes)
	assert.Equal(t, init1.ConnectionID, change.ConnectionID)

	require.NoError(t, c1.Close())
	leave := readJSON(t, c2)
	assert.Equal(t, api.TypeCursorLeave, leave.Type)
	assert.Equal(t, init1.ConnectionID, leave.ConnectionID)

	info, err := srv.registry.Inspect(context.Background(), "org/repo/main/a.md")
	require.NoError(t, err)
	assert.Equal(t, "hello world", info.Text)
}

func TestWS_IdentityHeaders(t *testing.T) {
	srv := setupTestServer(t, models.ModePlain)

	header := http.Header{}
	header.Set(api.HeaderDocumentKey, "doc")
	header.Set(api.HeaderUserName, base64.StdEncoding.EncodeToString([]byte("Анна")))
	header.Set(api.HeaderUserImage, "https%3A%2F%2Fexample.com%2Fa.png")
	header.Set(api.HeaderUserID, "42")

	c1 := srv.dial(t, "/ws", header)
	writeJSON(t, c1, `{"type":"init"}`)
	readJSON(t, c1)

	c2 := srv.dial(t, "/ws/doc", nil)
	writeJSON(t, c2, `{"type":"init"}`)
	readJSON(t, c2)

	writeJSON(t, c1, `{"type":"cursor","position":0}`)
	cursor := readJSON(t, c2)

	assert.Equal(t, api.TypeCursor, cursor.Type)
	assert.Equal(t, "Анна", cursor.UserName)
	assert.Equal(t, "https://example.com/a.png", cursor.UserImage)
}

func TestWS_CRDTSession(t *testing.T) {
	srv := setupTestServer(t, models.ModeCRDT)

	header := http.Header{}
	header.Set(api.HeaderInitialContent, base64.StdEncoding.EncodeToString([]byte("seed")))
	c1 := srv.dial(t, "/ws/doc", header)

	step1 := decodeSyncFrame(t, readMessage(t, c1))
	assert.Equal(t, wire.SyncStep1, step1.Type)

	replica := crdt.NewDoc(crdt.WithClientID(5))
	require.NoError(t, c1.WriteMessage(websocket.BinaryMessage, wire.EncodeSyncStep1(replica.EncodeStateVector())))
	step2 := decodeSyncFrame(t, readMessage(t, c1))
	require.Equal(t, wire.SyncStep2, step2.Type)
	_, err := replica.ApplyUpdate(step2.Payload)
	require.NoError(t, err)
	assert.Equal(t, "seed", replica.String())

	c2 := srv.dial(t, "/ws/doc", nil)
	readMessage(t, c2) // step 1

	update, err := replica.Insert(4, "!")
	require.NoError(t, err)
	require.NoError(t, c1.WriteMessage(websocket.BinaryMessage, wire.EncodeSyncUpdate(update)))

	relayed := decodeSyncFrame(t, readMessage(t, c2))
	assert.Equal(t, wire.SyncUpdate, relayed.Type)

	late := crdt.NewDoc(crdt.WithClientID(6))
	require.NoError(t, c2.WriteMessage(websocket.BinaryMessage, wire.EncodeSyncStep1(late.EncodeStateVector())))
	full := decodeSyncFrame(t, readMessage(t, c2))
	_, err = late.ApplyUpdate(full.Payload)
	require.NoError(t, err)
	assert.Equal(t, "seed!", late.String())
}

func TestWS_MalformedInitialContentIsIgnored(t *testing.T) {
	srv := setupTestServer(t, models.ModeCRDT)

	header := http.Header{}
	header.Set(api.HeaderInitialContent, "%%% not base64")
	c1 := srv.dial(t, "/ws/doc", header)

	step1 := decodeSyncFrame(t, readMessage(t, c1))
	sv, err := crdt.DecodeStateVector(step1.Payload)
	require.NoError(t, err)
	assert.Empty(t, sv, "document stays empty")
}

func TestWS_OversizedFrameClosesWith1009(t *testing.T) {
	srv := setupTestServer(t, models.ModeCRDT)

	c1 := srv.dial(t, "/ws/doc", nil)
	readMessage(t, c1)
	c2 := srv.dial(t, "/ws/doc", nil)
	readMessage(t, c2)

	_ = c1.WriteMessage(websocket.BinaryMessage, make([]byte, 2*1024*1024))

	assert.Equal(t, websocket.CloseMessageTooBig, readCloseCode(t, c1))

	// второй клиент не затронут
	replica := crdt.NewDoc(crdt.WithClientID(8))
	require.NoError(t, c2.WriteMessage(websocket.BinaryMessage, wire.EncodeSyncStep1(replica.EncodeStateVector())))
	msg := decodeSyncFrame(t, readMessage(t, c2))
	assert.Equal(t, wire.SyncStep2, msg.Type)
}

func TestWS_ShutdownClosesWithGoingAway(t *testing.T) {
	srv := setupTestServer(t, models.ModePlain)

	c1 := srv.dial(t, "/ws/doc", nil)
	writeJSON(t, c1, `{"type":"init","content":"bye"}`)
	readJSON(t, c1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, srv.registry.Shutdown(ctx))

	assert.Equal(t, websocket.CloseGoingAway, readCloseCode(t, c1))

	rec, err := srv.store.GetDocument(context.Background(), "doc")
	require.NoError(t, err)
	assert.Equal(t, []byte("bye"), rec.Content)
}

func TestWS_InvalidKey(t *testing.T) {
	srv := setupTestServer(t, models.ModePlain)

	resp, err := http.Get(srv.URL + "/ws")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var errResp api.ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&errResp))
	assert.Contains(t, errResp.Message, "empty")
}

func TestDocumentHandler_Get(t *testing.T) {
	srv := setupTestServer(t, models.ModePlain)

	c1 := srv.dial(t, "/ws/org/repo/main/a.md", nil)
	writeJSON(t, c1, `{"type":"init","content":"inspect me"}`)
	readJSON(t, c1)

	resp, err := http.Get(srv.URL + "/api/v1/documents/org/repo/main/a.md")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var doc api.DocumentResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&doc))
	assert.Equal(t, "org/repo/main/a.md", doc.Key)
	assert.Equal(t, "plain", doc.Mode)
	assert.Equal(t, "inspect me", doc.Text)
	assert.Equal(t, 1, doc.Connections)

	missing, err := http.Get(srv.URL + "/api/v1/documents/missing")
	require.NoError(t, err)
	defer missing.Body.Close()
	assert.Equal(t, http.StatusNotFound, missing.StatusCode)
}

func decodeSyncFrame(t *testing.T, frame []byte) wire.SyncMessage {
	t.Helper()
	f, err := wire.DecodeFrame(frame, 0)
	require.NoError(t, err)
	require.Equal(t, wire.FrameSync, f.Kind)
	msg, err := wire.DecodeSyncMessage(f.Body)
	require.NoError(t, err)
	return msg
}
