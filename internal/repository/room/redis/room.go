package redis

import (
	"context"

	"github.com/sharetube/watchparty/internal/repository/room"
)

func (r repo) getRoomKey(roomId string) string {
	return "room:" + roomId
}

func (r repo) CreateRoom(ctx context.Context, params *room.CreateRoomParams) error {
	r.logger.DebugContext(ctx, "called", "params", params)

	args := append([]any{r.roomExp.Milliseconds()}, structFields(params.Room)...)
	created, err := reserveRoomScript.Run(ctx, r.rc, []string{r.getRoomKey(params.RoomId)}, args...).Int()
	if err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return err
	}

	if created == 0 {
		r.logger.DebugContext(ctx, "returned", "error", room.ErrCodeTaken)
		return room.ErrCodeTaken
	}

	return nil
}

func (r repo) GetRoom(ctx context.Context, roomId string) (room.Room, error) {
	r.logger.DebugContext(ctx, "called", "room_id", roomId)
	res := r.rc.HGetAll(ctx, r.getRoomKey(roomId))
	if err := res.Err(); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return room.Room{}, err
	}

	if len(res.Val()) == 0 {
		r.logger.DebugContext(ctx, "returned", "error", room.ErrRoomNotFound)
		return room.Room{}, room.ErrRoomNotFound
	}

	var rm room.Room
	if err := res.Scan(&rm); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return room.Room{}, err
	}

	return rm, nil
}

func (r repo) UpdateRoom(ctx context.Context, params *room.UpdateRoomParams) error {
	r.logger.DebugContext(ctx, "called", "params", params)
	key := r.getRoomKey(params.RoomId)

	cmd := r.rc.Exists(ctx, key)
	if err := cmd.Err(); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return err
	}

	if cmd.Val() == 0 {
		r.logger.DebugContext(ctx, "returned", "error", room.ErrRoomNotFound)
		return room.ErrRoomNotFound
	}

	pipe := r.rc.TxPipeline()
	pipe.HSet(ctx, key, "host_id", params.HostId, "participants", params.Participants)
	pipe.PExpire(ctx, key, r.roomExp)

	if err := r.executePipe(ctx, pipe); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return err
	}

	return nil
}

func (r repo) RefreshRoom(ctx context.Context, roomId string) error {
	r.logger.DebugContext(ctx, "called", "room_id", roomId)
	ok, err := r.rc.PExpire(ctx, r.getRoomKey(roomId), r.roomExp).Result()
	if err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return err
	}

	if !ok {
		r.logger.DebugContext(ctx, "returned", "error", room.ErrRoomNotFound)
		return room.ErrRoomNotFound
	}

	return nil
}

func (r repo) RemoveRoom(ctx context.Context, roomId string) error {
	r.logger.DebugContext(ctx, "called", "room_id", roomId)
	if err := r.rc.Del(ctx, r.getRoomKey(roomId)).Err(); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return err
	}

	return nil
}
